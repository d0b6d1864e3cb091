// Package cache implements the scope-keyed fetch cache and the
// invalidation fan-out that keeps dependent views consistent after a
// mutation.
package cache

import (
	"log/slog"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// Resource identifies a cacheable remote collection.
type Resource string

const (
	// ResourceBudget is the actual-transaction collection.
	ResourceBudget Resource = "budget"
	// ResourceProjected is the planned-transaction collection.
	ResourceProjected Resource = "projected"
	// ResourcePaymentSummary is the per-account payment summary read.
	ResourcePaymentSummary Resource = "payment-summary"
)

// Key identifies one cached scope. Keys are pure values: they compare
// structurally and are never mutated after construction. An empty
// Account means the un-scoped list key for the resource.
type Key struct {
	Resource Resource
	Account  string
	Filter   service.Filter
}

// BuildKey maps a resource and scope to its cache key. It never fails:
// an unusable account reference degrades to the coarser list key, which
// over-invalidates rather than crashing a caller.
func BuildKey(resource Resource, account *model.AccountRef, filter service.Filter) Key {
	if account == nil {
		return Key{Resource: resource, Filter: filter}
	}
	if account.IsZero() {
		slog.Warn("Degrading unusable account scope to list key", "resource", string(resource))
		return Key{Resource: resource, Filter: filter}
	}
	return Key{Resource: resource, Account: account.String(), Filter: filter}
}

// IsList reports whether the key is an un-scoped list key.
func (k Key) IsList() bool {
	return k.Account == ""
}

// Covers reports whether entry key ek falls within k's scope when k is
// used as an invalidation probe. Resource and account must match
// exactly; each filter field set on the probe must match the entry, and
// an unset probe field covers every value. An empty probe filter
// therefore covers all filters cached under the account.
func (k Key) Covers(ek Key) bool {
	if k.Resource != ek.Resource || k.Account != ek.Account {
		return false
	}
	pf, ef := k.Filter, ek.Filter
	if pf.Account != "" && pf.Account != ef.Account {
		return false
	}
	if pf.StatementPeriod != "" && pf.StatementPeriod != ef.StatementPeriod {
		return false
	}
	if pf.Category != "" && pf.Category != ef.Category {
		return false
	}
	if pf.Criticality != "" && pf.Criticality != ef.Criticality {
		return false
	}
	if pf.PaymentMethod != "" && pf.PaymentMethod != ef.PaymentMethod {
		return false
	}
	if pf.Accounts != "" && pf.Accounts != ef.Accounts {
		return false
	}
	return true
}

// String renders the key for logs.
func (k Key) String() string {
	scope := "list"
	if !k.IsList() {
		scope = "accounts/" + k.Account
	}
	s := string(k.Resource) + "/" + scope
	if encoded := k.Filter.Encode(); encoded != "" {
		s += "?" + encoded
	}
	return s
}
