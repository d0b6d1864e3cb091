// Package testutil provides in-memory fakes of the service contracts
// for exercising the reconciliation engine without a ledger server.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// FakeCollection is a scriptable in-memory CollectionSource. Zero value
// is usable; set the error and override fields to script failures and
// server-side behaviors such as joint redistribution.
type FakeCollection struct {
	mu sync.Mutex

	// Source tags rows returned by fetches.
	Source model.Source

	// Split is returned by account-scoped fetches.
	Split service.SplitRows
	// All feeds global fetches, client-filtered by the request filter.
	All []model.Transaction

	FetchErr  error
	CreateErr error
	UpdateErr error
	// DeleteErr scripts per-id delete failures.
	DeleteErr map[string]error

	// CreateFn overrides the default create behavior, e.g. to emulate
	// the server reassigning a joint transaction to a member account.
	CreateFn func(txn model.Transaction) (model.Transaction, error)

	// FetchGate, when non-nil, blocks fetches until closed. Used to
	// hold a response in flight while the test changes scope.
	FetchGate chan struct{}
	// FetchStarted, when non-nil, receives one signal as each gated
	// fetch begins blocking.
	FetchStarted chan struct{}

	created    []model.Transaction
	updated    map[string]model.Transaction
	deleted    []string
	fetchCalls int
	nextID     int
}

// Fetch returns the scripted personal/joint split.
func (f *FakeCollection) Fetch(ctx context.Context, _ service.Filter) (service.SplitRows, error) {
	if err := f.gate(ctx); err != nil {
		return service.SplitRows{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.FetchErr != nil {
		return service.SplitRows{}, f.FetchErr
	}
	return service.SplitRows{
		Personal: tagged(f.Split.Personal, f.Source),
		Joint:    tagged(f.Split.Joint, f.Source),
	}, nil
}

// FetchAll returns the scripted global rows matching the filter.
func (f *FakeCollection) FetchAll(ctx context.Context, filter service.Filter) ([]model.Transaction, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	var out []model.Transaction
	for _, txn := range tagged(f.All, f.Source) {
		if filter.Matches(txn) {
			out = append(out, txn)
		}
	}
	return out, nil
}

// Create records the payload and returns a persisted copy.
func (f *FakeCollection) Create(_ context.Context, txn model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, txn)
	if f.CreateErr != nil {
		return model.Transaction{}, f.CreateErr
	}
	if f.CreateFn != nil {
		return f.CreateFn(txn)
	}
	f.nextID++
	saved := txn
	saved.ID = fmt.Sprintf("srv-%d", f.nextID)
	saved.IsNew = false
	return saved, nil
}

// Update records the payload and returns the updated row.
func (f *FakeCollection) Update(_ context.Context, id string, txn model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = make(map[string]model.Transaction)
	}
	f.updated[id] = txn
	if f.UpdateErr != nil {
		return model.Transaction{}, f.UpdateErr
	}
	saved := txn
	saved.ID = id
	return saved, nil
}

// Delete records the id, honoring scripted per-id failures.
func (f *FakeCollection) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// Created returns the create payloads received so far.
func (f *FakeCollection) Created() []model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Transaction(nil), f.created...)
}

// Updated returns the update payload received for an id.
func (f *FakeCollection) Updated(id string) (model.Transaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.updated[id]
	return txn, ok
}

// Deleted returns the ids deleted so far.
func (f *FakeCollection) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// FetchCalls returns how many fetches have completed.
func (f *FakeCollection) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *FakeCollection) gate(ctx context.Context) error {
	f.mu.Lock()
	gate := f.FetchGate
	started := f.FetchStarted
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	if started != nil {
		started <- struct{}{}
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func tagged(txns []model.Transaction, source model.Source) []model.Transaction {
	out := make([]model.Transaction, len(txns))
	for i, txn := range txns {
		txn.Source = source
		out[i] = txn
	}
	return out
}

// FakeImporter is a scriptable in-memory Importer.
type FakeImporter struct {
	mu sync.Mutex

	Result *service.ImportResult
	Err    error

	periods   []model.StatementPeriod
	filenames []string
}

// Import records the call and returns the scripted result.
func (f *FakeImporter) Import(_ context.Context, _ io.Reader, filename string, period model.StatementPeriod) (*service.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods = append(f.periods, period)
	f.filenames = append(f.filenames, filename)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		return f.Result, nil
	}
	return &service.ImportResult{StatementPeriod: period}, nil
}

// Calls returns the number of imports attempted.
func (f *FakeImporter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.periods)
}

// StaticConfig is a fixed ConfigSource for tests.
type StaticConfig struct {
	Cats     []string
	Crits    []string
	Defaults map[string]string
	Members  []string
}

// Categories implements service.ConfigSource.
func (c StaticConfig) Categories() []string { return c.Cats }

// CriticalityLevels implements service.ConfigSource.
func (c StaticConfig) CriticalityLevels() []string { return c.Crits }

// DefaultPaymentMethod implements service.ConfigSource.
func (c StaticConfig) DefaultPaymentMethod(account string) string { return c.Defaults[account] }

// MemberAccounts implements service.ConfigSource.
func (c StaticConfig) MemberAccounts() []string { return c.Members }
