package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempID(t *testing.T) {
	id := NewTempID()
	assert.True(t, Transaction{ID: id}.IsTemp())
	assert.NotEqual(t, id, NewTempID(), "temp ids must be unique")
}

func TestIsTemp(t *testing.T) {
	assert.False(t, Transaction{ID: "p-55"}.IsTemp())
	assert.False(t, Transaction{}.IsTemp())
	assert.True(t, Transaction{ID: "tmp-abc"}.IsTemp())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "negative decimal", input: "-1200.50", want: "-1200.5"},
		{name: "integer", input: "42", want: "42"},
		{name: "whitespace trimmed", input: " 3.14 ", want: "3.14"},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "twelve", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSortByDateDesc(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, time.November, d, 0, 0, 0, 0, time.UTC)
	}
	txns := []Transaction{
		{ID: "a", Date: day(3)},
		{ID: "b", Date: day(28)},
		{ID: "c", Date: day(3)},
		{ID: "d", Date: day(15)},
	}

	SortByDateDesc(txns)

	ids := make([]string, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
	}
	// Equal dates keep their original relative order.
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestAmountRoundTrip(t *testing.T) {
	amount, err := ParseAmount("-1200")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(-1200)))
}
