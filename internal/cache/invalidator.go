package cache

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// Invalidator computes and applies the fan-out of cache scopes affected
// by a mutation. Fan-out is best-effort and exhaustive: every scope is
// attempted independently, and one failure never prevents the rest.
type Invalidator struct {
	store          *Store
	defaultMembers []string
}

// NewInvalidator creates an invalidator over the given store. The
// default member list resolves joint fan-out targets when a call does
// not supply its own.
func NewInvalidator(store *Store, defaultMembers []string) *Invalidator {
	return &Invalidator{
		store:          store,
		defaultMembers: defaultMembers,
	}
}

// Invalidate marks stale every scope a mutation against the given
// account may have touched, and returns the full set of probed scopes.
//
// A nil account invalidates the un-scoped lists plus the aggregate
// payment summary. The joint pseudo-account additionally fans out to
// every member account, because the server is permitted to redistribute
// a joint-entered transaction across members: a mutation attempted
// against joint is never assumed to stay in joint storage. A member
// account invalidates only that member's scopes.
//
// Invalidation is account-granular: probes carry no period filter, so
// every statement period cached under an affected account is covered.
// Over-invalidation is acceptable; under-invalidation is not.
func (inv *Invalidator) Invalidate(account *model.AccountRef, period model.StatementPeriod, members []string) []Key {
	if len(members) == 0 {
		members = inv.defaultMembers
	}

	probes := inv.fanOut(account, members)

	scope := "all"
	if account != nil {
		scope = account.String()
	}
	slog.Debug("Invalidating cache scopes",
		"account", scope,
		"period", string(period),
		"scopes", len(probes))

	for _, probe := range probes {
		inv.one(probe)
	}
	return probes
}

// fanOut computes the probe set for a mutated account.
func (inv *Invalidator) fanOut(account *model.AccountRef, members []string) []Key {
	aggregate := Key{
		Resource: ResourcePaymentSummary,
		Filter:   service.Filter{Accounts: service.JoinAccounts(members)},
	}

	switch {
	case account == nil:
		return []Key{
			BuildKey(ResourceBudget, nil, service.Filter{}),
			BuildKey(ResourceProjected, nil, service.Filter{}),
			aggregate,
		}

	case account.IsJoint():
		joint := model.Joint()
		keys := []Key{
			BuildKey(ResourceBudget, &joint, service.Filter{}),
			BuildKey(ResourceProjected, &joint, service.Filter{}),
		}
		for _, name := range members {
			member := model.Member(name)
			keys = append(keys,
				BuildKey(ResourceBudget, &member, service.Filter{}),
				BuildKey(ResourceProjected, &member, service.Filter{}),
				BuildKey(ResourcePaymentSummary, &member, service.Filter{}),
			)
		}
		return append(keys, aggregate)

	default:
		return []Key{
			BuildKey(ResourceBudget, account, service.Filter{}),
			BuildKey(ResourceProjected, account, service.Filter{}),
			BuildKey(ResourcePaymentSummary, account, service.Filter{}),
		}
	}
}

// one applies a single probe, isolated so a malformed scope cannot
// abort the remaining fan-out.
func (inv *Invalidator) one(probe Key) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError(
				fmt.Errorf("%w: %v", common.ErrReconciliation, r),
				"Cache invalidation failed for scope",
				common.Fields{"key": probe.String()})
		}
	}()
	inv.store.Invalidate(probe)
}
