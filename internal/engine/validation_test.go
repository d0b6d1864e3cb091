package engine

import (
	"errors"
	"testing"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDraft(t *testing.T) {
	cfg := testutil.StaticConfig{
		Cats:  []string{"Housing", "Groceries"},
		Crits: []string{"Essential", "Optional"},
	}

	tests := []struct {
		name    string
		draft   model.Transaction
		cfg     testutil.StaticConfig
		wantErr string
	}{
		{
			name:  "valid draft",
			draft: model.Transaction{Name: "Rent", Category: "Housing", Criticality: "Essential"},
			cfg:   cfg,
		},
		{
			name:    "missing name",
			draft:   model.Transaction{Category: "Housing"},
			cfg:     cfg,
			wantErr: "name is required",
		},
		{
			name:    "whitespace name",
			draft:   model.Transaction{Name: "   ", Category: "Housing"},
			cfg:     cfg,
			wantErr: "name is required",
		},
		{
			name:  "criticality is case-insensitive",
			draft: model.Transaction{Name: "Rent", Category: "Housing", Criticality: "essential"},
			cfg:   cfg,
		},
		{
			name:    "unknown criticality",
			draft:   model.Transaction{Name: "Rent", Category: "Housing", Criticality: "Whimsical"},
			cfg:     cfg,
			wantErr: "criticality",
		},
		{
			name:  "criticality optional when blank",
			draft: model.Transaction{Name: "Rent", Category: "Housing"},
			cfg:   cfg,
		},
		{
			name:    "category required when enumeration configured",
			draft:   model.Transaction{Name: "Rent"},
			cfg:     cfg,
			wantErr: "category is required",
		},
		{
			name:    "category match is exact",
			draft:   model.Transaction{Name: "Rent", Category: "housing"},
			cfg:     cfg,
			wantErr: "category",
		},
		{
			name:  "no enumerations configured",
			draft: model.Transaction{Name: "Anything", Category: "Whatever", Criticality: "Meh"},
			cfg:   testutil.StaticConfig{},
		},
		{
			name:    "multiple problems reported together",
			draft:   model.Transaction{Criticality: "Whimsical"},
			cfg:     cfg,
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDraft(tt.draft, tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			assert.Contains(t, common.UserMessage(err), tt.wantErr)
		})
	}
}
