// Package session owns the local working set for one open
// account/period view: the merge of unsaved optimistic rows with the
// last-fetched budget and projected collections.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/hearthledger/internal/cache"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
	"golang.org/x/sync/errgroup"
)

// RowState tracks one row through its save lifecycle.
type RowState string

const (
	// RowDraft is a local-only row that has never been persisted.
	RowDraft RowState = "draft"
	// RowSaving marks a row with a save in flight.
	RowSaving RowState = "saving"
	// RowPersisted marks a server-backed row.
	RowPersisted RowState = "persisted"
)

// Session is the view session for one account/period selection. The
// working set is rebuilt wholesale whenever the selection or the
// underlying cache entries change, and discarded when the selection
// changes.
type Session struct {
	mu        sync.Mutex
	store     *cache.Store
	budget    service.CollectionSource
	projected service.CollectionSource

	account model.AccountRef
	period  model.StatementPeriod

	// generation increments on every selection change; a fetch whose
	// generation no longer matches is a response for an abandoned
	// scope and is discarded.
	generation uint64
	dirty      bool
	loading    bool
	lastErr    error

	rows    []model.Transaction
	states  map[string]RowState
	rowErrs map[string]string

	unsubscribe func()
}

// New creates a session over the cache store and the two collections.
// Callers must Close the session when the view goes away.
func New(store *cache.Store, budget, projected service.CollectionSource) *Session {
	s := &Session{
		store:     store,
		budget:    budget,
		projected: projected,
		states:    make(map[string]RowState),
		rowErrs:   make(map[string]string),
	}
	s.unsubscribe = store.Subscribe(s.onInvalidated)
	return s
}

// Close cancels the session's cache subscription.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Select changes the active account/period view. The working set is
// cleared immediately so a stale period is never shown, then
// repopulated on the next Sync. Unsaved local rows belong to the old
// view and are discarded with it.
func (s *Session) Select(account model.AccountRef, period model.StatementPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
	s.period = period
	s.generation++
	s.dirty = true
	s.loading = false
	s.rows = nil
	s.states = make(map[string]RowState)
	s.rowErrs = make(map[string]string)
	s.lastErr = nil
}

// Sync brings the working set up to date with the active selection,
// fetching either collection whose cache entry is missing or stale. A
// response that lands after the selection has moved on is discarded.
// While the statement period is unresolved the working set stays empty.
func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	account, period, gen := s.account, s.period, s.generation
	if account.IsZero() || period == "" {
		s.rows = nil
		s.mu.Unlock()
		return nil
	}
	budgetKey, projectedKey := scopeKeys(account, period)
	needBudget := s.needsFetch(budgetKey)
	needProjected := s.needsFetch(projectedKey)
	s.loading = needBudget || needProjected
	s.mu.Unlock()

	if !needBudget && !needProjected {
		s.mu.Lock()
		s.rebuildLocked()
		s.mu.Unlock()
		return nil
	}

	filter := service.Filter{Account: account.String(), StatementPeriod: period}
	var budgetRows, projectedRows []model.Transaction

	g, gctx := errgroup.WithContext(ctx)
	if needBudget {
		g.Go(func() error {
			split, err := s.budget.Fetch(gctx, filter)
			if err != nil {
				return fmt.Errorf("budget fetch: %w", err)
			}
			budgetRows = flatten(split, model.SourceBudget)
			return nil
		})
	}
	if needProjected {
		g.Go(func() error {
			split, err := s.projected.Fetch(gctx, filter)
			if err != nil {
				return fmt.Errorf("projected fetch: %w", err)
			}
			projectedRows = flatten(split, model.SourceProjected)
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		slog.Debug("Discarding fetch for abandoned scope",
			"account", account.String(),
			"period", string(period))
		return nil
	}
	s.loading = false
	s.lastErr = err
	if err != nil {
		return err
	}
	s.dirty = false
	if needBudget {
		s.store.Put(budgetKey, budgetRows)
	}
	if needProjected {
		s.store.Put(projectedKey, projectedRows)
	}
	s.rebuildLocked()
	return nil
}

// Rows returns the merged working set: local-only rows first, then
// projected rows, then budget rows, each group sorted newest-first.
func (s *Session) Rows() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.rows...)
}

// Row returns the working-set row with the given id.
func (s *Session) Row(id string) (model.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.rows {
		if txn.ID == id {
			return txn, true
		}
	}
	return model.Transaction{}, false
}

// Loading reports whether a fetch for the active scope is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last fetch error for the active scope.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Account returns the active account selection.
func (s *Session) Account() model.AccountRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Period returns the active statement period.
func (s *Session) Period() model.StatementPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// AddLocal inserts an optimistic, not-yet-persisted row at the head of
// the working set.
func (s *Session) AddLocal(txn model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]model.Transaction{txn}, s.rows...)
	s.states[txn.ID] = RowDraft
}

// ReplaceRow swaps the row with the given id for the server-returned
// entity, typically replacing a temporary id with a persistent one.
// Any error recorded against the old id is cleared.
func (s *Session) ReplaceRow(id string, txn model.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i] = txn
			delete(s.states, id)
			delete(s.rowErrs, id)
			s.states[txn.ID] = RowPersisted
			return true
		}
	}
	return false
}

// RemoveRows drops the given ids from the working set and from all
// per-row bookkeeping.
func (s *Session) RemoveRows(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		delete(s.states, id)
		delete(s.rowErrs, id)
	}
	kept := s.rows[:0]
	for _, txn := range s.rows {
		if !drop[txn.ID] {
			kept = append(kept, txn)
		}
	}
	s.rows = kept
}

// SetState moves a row through its save state machine.
func (s *Session) SetState(id string, state RowState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

// State returns a row's save state.
func (s *Session) State(id string) RowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[id]
}

// SetRowError records a user-visible error against a row id. The row
// stays present and editable.
func (s *Session) SetRowError(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowErrs[id] = msg
}

// RowError returns the error recorded against a row id, if any.
func (s *Session) RowError(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowErrs[id]
}

// ClearRowError removes the error recorded against a row id.
func (s *Session) ClearRowError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowErrs, id)
}

// onInvalidated marks the session dirty when an invalidation probe
// touches the active scope, so the next Sync refetches.
func (s *Session) onInvalidated(probe cache.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account.IsZero() || s.period == "" {
		return
	}
	budgetKey, projectedKey := scopeKeys(s.account, s.period)
	if probe.Covers(budgetKey) || probe.Covers(projectedKey) {
		s.dirty = true
	}
}

// needsFetch reports whether a scope's cache entry is missing or stale.
// Callers hold s.mu.
func (s *Session) needsFetch(k cache.Key) bool {
	if s.dirty {
		return true
	}
	entry, ok := s.store.Get(k)
	return !ok || entry.Stale
}

// rebuildLocked recomputes the working set from the cache: retained
// local-only rows, then projected rows, then budget rows, the two
// fetched groups each sorted by date descending. Rows with equal
// timestamps never interleave across groups. Callers hold s.mu.
func (s *Session) rebuildLocked() {
	if s.account.IsZero() || s.period == "" {
		s.rows = nil
		return
	}

	var localOnly []model.Transaction
	for _, txn := range s.rows {
		if txn.IsNew {
			localOnly = append(localOnly, txn)
		}
	}

	budgetKey, projectedKey := scopeKeys(s.account, s.period)
	projected := sortedRows(s.store, projectedKey)
	budget := sortedRows(s.store, budgetKey)

	merged := make([]model.Transaction, 0, len(localOnly)+len(projected)+len(budget))
	merged = append(merged, localOnly...)
	merged = append(merged, projected...)
	merged = append(merged, budget...)
	s.rows = merged
}

// sortedRows copies a scope's cached rows and sorts them newest-first.
// The cache entry itself is never mutated.
func sortedRows(store *cache.Store, k cache.Key) []model.Transaction {
	entry, ok := store.Get(k)
	if !ok {
		return nil
	}
	rows := append([]model.Transaction(nil), entry.Rows...)
	model.SortByDateDesc(rows)
	return rows
}

// flatten collapses an account-scoped personal/joint split into one
// slice, tagging every row with its owning collection.
func flatten(split service.SplitRows, source model.Source) []model.Transaction {
	out := make([]model.Transaction, 0, len(split.Personal)+len(split.Joint))
	for _, txn := range split.Personal {
		txn.Source = source
		out = append(out, txn)
	}
	for _, txn := range split.Joint {
		txn.Source = source
		out = append(out, txn)
	}
	return out
}

// scopeKeys builds the budget and projected cache keys for a view.
func scopeKeys(account model.AccountRef, period model.StatementPeriod) (budget, projected cache.Key) {
	filter := service.Filter{Account: account.String(), StatementPeriod: period}
	budget = cache.BuildKey(cache.ResourceBudget, &account, filter)
	projected = cache.BuildKey(cache.ResourceProjected, &account, filter)
	return budget, projected
}
