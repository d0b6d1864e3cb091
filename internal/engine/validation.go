package engine

import (
	"fmt"
	"strings"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// validateDraft applies the create-time field rules. Any failure aborts
// the network call entirely; the messages are reported against the
// draft's row id.
//
// Amounts are validated at the boundary by model.ParseAmount, so a
// draft that reaches the engine already carries a numeric value.
func validateDraft(draft model.Transaction, cfg service.ConfigSource) error {
	var problems []string

	if strings.TrimSpace(draft.Name) == "" {
		problems = append(problems, "name is required")
	}

	if levels := cfg.CriticalityLevels(); len(levels) > 0 && draft.Criticality != "" {
		if !containsFold(levels, draft.Criticality) {
			problems = append(problems, fmt.Sprintf("criticality %q is not one of %s", draft.Criticality, strings.Join(levels, ", ")))
		}
	}

	if categories := cfg.Categories(); len(categories) > 0 {
		switch {
		case draft.Category == "":
			problems = append(problems, "category is required")
		case !containsExact(categories, draft.Category):
			problems = append(problems, fmt.Sprintf("category %q is not one of %s", draft.Category, strings.Join(categories, ", ")))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return common.NewUserError(strings.Join(problems, "; "), common.ErrValidation)
}

// containsFold reports a case-insensitive membership test.
func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// containsExact reports an exact membership test.
func containsExact(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
