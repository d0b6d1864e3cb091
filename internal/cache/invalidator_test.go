package cache

import (
	"testing"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func TestInvalidateJointFansOutToAllMembers(t *testing.T) {
	store := NewStore()
	inv := NewInvalidator(store, nil)
	joint := model.Joint()

	probes := inv.Invalidate(&joint, "NOVEMBER2025", []string{"josh", "anna"})

	assert.ElementsMatch(t, []string{
		"budget/accounts/joint",
		"projected/accounts/joint",
		"budget/accounts/josh",
		"projected/accounts/josh",
		"payment-summary/accounts/josh",
		"budget/accounts/anna",
		"projected/accounts/anna",
		"payment-summary/accounts/anna",
		"payment-summary/list?accounts=josh,anna",
	}, keyStrings(probes), "joint fan-out must hit exactly these nine scopes")
}

func TestInvalidateMemberStaysScoped(t *testing.T) {
	store := NewStore()
	inv := NewInvalidator(store, []string{"josh", "anna"})
	josh := model.Member("josh")

	probes := inv.Invalidate(&josh, "NOVEMBER2025", []string{"josh", "anna"})

	assert.ElementsMatch(t, []string{
		"budget/accounts/josh",
		"projected/accounts/josh",
		"payment-summary/accounts/josh",
	}, keyStrings(probes))
}

func TestInvalidateNilAccountHitsLists(t *testing.T) {
	store := NewStore()
	inv := NewInvalidator(store, nil)

	probes := inv.Invalidate(nil, "NOVEMBER2025", []string{"josh", "anna"})

	assert.ElementsMatch(t, []string{
		"budget/list",
		"projected/list",
		"payment-summary/list?accounts=josh,anna",
	}, keyStrings(probes))
}

func TestInvalidateFallsBackToDefaultMembers(t *testing.T) {
	store := NewStore()
	inv := NewInvalidator(store, []string{"josh", "anna"})
	joint := model.Joint()

	probes := inv.Invalidate(&joint, "NOVEMBER2025", nil)
	assert.Len(t, probes, 9)
}

func TestInvalidateMarksCachedEntries(t *testing.T) {
	store := NewStore()
	inv := NewInvalidator(store, nil)

	joshNov := joshKey("NOVEMBER2025")
	store.Put(joshNov, []model.Transaction{{ID: "a"}})

	joint := model.Joint()
	inv.Invalidate(&joint, "NOVEMBER2025", []string{"josh", "anna"})

	entry, ok := store.Get(joshNov)
	require.True(t, ok)
	assert.True(t, entry.Stale, "a joint mutation must stale member scopes")
}
