package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/hearthledger/internal/cache"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
	"github.com/Veraticus/hearthledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.November, d, 0, 0, 0, 0, time.UTC)
}

func txn(id string, d int, period model.StatementPeriod) model.Transaction {
	return model.Transaction{
		ID:              id,
		Account:         "josh",
		StatementPeriod: period,
		Date:            day(d),
	}
}

func newTestSession(budget, projected *testutil.FakeCollection) *Session {
	budget.Source = model.SourceBudget
	projected.Source = model.SourceProjected
	return New(cache.NewStore(), budget, projected)
}

func ids(rows []model.Transaction) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestSyncMergeOrdering(t *testing.T) {
	budget := &testutil.FakeCollection{
		Split: service.SplitRows{
			Personal: []model.Transaction{txn("b1", 10, "NOVEMBER2025"), txn("b2", 20, "NOVEMBER2025")},
			Joint:    []model.Transaction{txn("b3", 15, "NOVEMBER2025")},
		},
	}
	projected := &testutil.FakeCollection{
		Split: service.SplitRows{
			Personal: []model.Transaction{txn("p1", 5, "NOVEMBER2025"), txn("p2", 25, "NOVEMBER2025")},
		},
	}
	s := newTestSession(budget, projected)
	defer s.Close()

	s.Select(model.Member("josh"), "NOVEMBER2025")
	require.NoError(t, s.Sync(context.Background()))

	// Projected rows come before budget rows regardless of date; each
	// group is independently sorted newest-first.
	assert.Equal(t, []string{"p2", "p1", "b2", "b3", "b1"}, ids(s.Rows()))

	for _, row := range s.Rows() {
		if row.ID[0] == 'p' {
			assert.Equal(t, model.SourceProjected, row.Source)
		} else {
			assert.Equal(t, model.SourceBudget, row.Source)
		}
	}
}

func TestLocalRowsStayFirstAcrossRebuilds(t *testing.T) {
	budget := &testutil.FakeCollection{
		Split: service.SplitRows{Personal: []model.Transaction{txn("b1", 28, "NOVEMBER2025")}},
	}
	projected := &testutil.FakeCollection{}
	s := newTestSession(budget, projected)
	defer s.Close()

	s.Select(model.Member("josh"), "NOVEMBER2025")
	require.NoError(t, s.Sync(context.Background()))

	local := txn(model.NewTempID(), 1, "NOVEMBER2025")
	local.IsNew = true
	s.AddLocal(local)

	// A second sync rebuilds from cache; the optimistic row survives
	// and stays ahead of everything fetched.
	require.NoError(t, s.Sync(context.Background()))
	rows := s.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, local.ID, rows[0].ID)
	assert.Equal(t, RowDraft, s.State(local.ID))
}

func TestUnresolvedPeriodShowsNothing(t *testing.T) {
	budget := &testutil.FakeCollection{
		Split: service.SplitRows{Personal: []model.Transaction{txn("b1", 1, "NOVEMBER2025")}},
	}
	s := newTestSession(budget, &testutil.FakeCollection{})
	defer s.Close()

	s.Select(model.Member("josh"), "")
	require.NoError(t, s.Sync(context.Background()))

	assert.Empty(t, s.Rows())
	assert.Zero(t, budget.FetchCalls(), "no fetch may be issued for an indeterminate period")
}

func TestSelectClearsImmediately(t *testing.T) {
	budget := &testutil.FakeCollection{
		Split: service.SplitRows{Personal: []model.Transaction{txn("b1", 1, "OCTOBER2025")}},
	}
	s := newTestSession(budget, &testutil.FakeCollection{})
	defer s.Close()

	s.Select(model.Member("josh"), "OCTOBER2025")
	require.NoError(t, s.Sync(context.Background()))
	require.NotEmpty(t, s.Rows())

	s.Select(model.Member("josh"), "NOVEMBER2025")
	assert.Empty(t, s.Rows(), "old period must not flash while the new one loads")
}

func TestStaleResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 2)
	budget := &testutil.FakeCollection{
		Split:        service.SplitRows{Personal: []model.Transaction{txn("oct-1", 1, "OCTOBER2025")}},
		FetchGate:    gate,
		FetchStarted: started,
	}
	projected := &testutil.FakeCollection{FetchGate: gate, FetchStarted: started}
	s := newTestSession(budget, projected)
	defer s.Close()

	s.Select(model.Member("josh"), "OCTOBER2025")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Sync(context.Background())
	}()

	// Wait until the October fetches are in flight, then move the
	// period on underneath them.
	<-started
	<-started
	s.Select(model.Member("josh"), "NOVEMBER2025")
	close(gate)
	wg.Wait()

	assert.Empty(t, s.Rows(), "the abandoned October response must not be applied")
	assert.False(t, s.Loading(), "an abandoned fetch must not leave the session stuck loading")

	budget.Split = service.SplitRows{Personal: []model.Transaction{txn("nov-1", 2, "NOVEMBER2025")}}
	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, []string{"nov-1"}, ids(s.Rows()))
}

func TestInvalidationTriggersRefetchOnNextSync(t *testing.T) {
	budget := &testutil.FakeCollection{}
	projected := &testutil.FakeCollection{}
	s := newTestSession(budget, projected)
	defer s.Close()

	s.Select(model.Member("josh"), "NOVEMBER2025")
	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, 1, budget.FetchCalls())

	// No invalidation: the next sync is served from cache.
	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, 1, budget.FetchCalls())

	inv := cache.NewInvalidator(s.store, nil)
	josh := model.Member("josh")
	inv.Invalidate(&josh, "NOVEMBER2025", nil)

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, 2, budget.FetchCalls(), "invalidation must force a refetch")
}

func TestReplaceRowSwapsTempID(t *testing.T) {
	s := newTestSession(&testutil.FakeCollection{}, &testutil.FakeCollection{})
	defer s.Close()
	s.Select(model.Member("josh"), "NOVEMBER2025")

	tempID := model.NewTempID()
	local := txn(tempID, 1, "NOVEMBER2025")
	local.IsNew = true
	local.Source = model.SourceProjected
	s.AddLocal(local)
	s.SetRowError(tempID, "previous failure")

	saved := local
	saved.ID = "p-55"
	saved.IsNew = false
	require.True(t, s.ReplaceRow(tempID, saved))

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "p-55", rows[0].ID)
	assert.Equal(t, model.SourceProjected, rows[0].Source)
	assert.Equal(t, RowPersisted, s.State("p-55"))
	assert.Empty(t, s.RowError(tempID))

	_, found := s.Row(tempID)
	assert.False(t, found, "the temporary id must be gone")
}

func TestRemoveRowsDropsBookkeeping(t *testing.T) {
	s := newTestSession(&testutil.FakeCollection{}, &testutil.FakeCollection{})
	defer s.Close()
	s.Select(model.Member("josh"), "NOVEMBER2025")

	a := txn(model.NewTempID(), 1, "NOVEMBER2025")
	a.IsNew = true
	b := txn(model.NewTempID(), 2, "NOVEMBER2025")
	b.IsNew = true
	s.AddLocal(a)
	s.AddLocal(b)
	s.SetRowError(a.ID, "boom")

	s.RemoveRows([]string{a.ID})

	assert.Equal(t, []string{b.ID}, ids(s.Rows()))
	assert.Empty(t, s.RowError(a.ID))
	assert.Equal(t, RowState(""), s.State(a.ID))
}
