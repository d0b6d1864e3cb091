package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/hearthledger/internal/cache"
	"github.com/Veraticus/hearthledger/internal/config"
	"github.com/Veraticus/hearthledger/internal/engine"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/remote"
	"github.com/Veraticus/hearthledger/internal/session"
	"github.com/Veraticus/hearthledger/internal/storage"
)

// app wires one command invocation: configuration, the remote client,
// the cache, a view session, and the mutation coordinator.
type app struct {
	settings    *config.Settings
	client      *remote.Client
	store       *cache.Store
	session     *session.Session
	coordinator *engine.Coordinator
}

// newApp builds the full stack from the loaded configuration.
func newApp() (*app, error) {
	settings := config.NewSettings()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	client, err := remote.NewClient(settings.ServerURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}

	store := cache.NewStore()
	budget := client.Budget()
	projected := client.Projected()
	sess := session.New(store, budget, projected)
	invalidator := cache.NewInvalidator(store, settings.MemberAccounts())
	coordinator := engine.New(budget, projected, client.Importer(), settings, invalidator, sess)

	return &app{
		settings:    settings,
		client:      client,
		store:       store,
		session:     sess,
		coordinator: coordinator,
	}, nil
}

// Close releases the session's cache subscription.
func (a *app) Close() {
	a.session.Close()
}

// selectScope points the session at an account and period and loads its
// working set from the server.
func (a *app) selectScope(ctx context.Context, account string, period model.StatementPeriod) error {
	a.session.Select(model.ParseAccountRef(account), period)
	return a.session.Sync(ctx)
}

// initSnapshots opens the offline snapshot database with proper path
// expansion and brings its schema up to date.
func initSnapshots(ctx context.Context, settings *config.Settings) (*storage.SnapshotStore, error) {
	store, err := storage.NewSnapshotStore(settings.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// closeSnapshots closes the snapshot store, logging instead of failing.
func closeSnapshots(store *storage.SnapshotStore) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close snapshot store", "error", err)
	}
}

// resolvePeriod parses a --period value, defaulting to the current
// statement period.
func resolvePeriod(raw string) (model.StatementPeriod, error) {
	if raw == "" {
		return model.PeriodOf(time.Now()), nil
	}
	period := model.StatementPeriod(raw)
	if !period.Valid() {
		return "", fmt.Errorf("invalid statement period %q (expected e.g. NOVEMBER2025)", raw)
	}
	return period, nil
}

// resolveAccount validates an --account value against the configured
// household, accepting the joint pseudo-account.
func resolveAccount(settings *config.Settings, raw string) (string, error) {
	ref := model.ParseAccountRef(raw)
	if ref.IsZero() {
		return "", fmt.Errorf("--account is required")
	}
	if ref.IsJoint() {
		return ref.String(), nil
	}
	for _, member := range settings.MemberAccounts() {
		if member == ref.String() {
			return ref.String(), nil
		}
	}
	return "", fmt.Errorf("unknown account %q (configured: %v, or %q)", raw, settings.MemberAccounts(), model.JointAccount)
}
