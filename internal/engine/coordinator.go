// Package engine implements the mutation coordinator: it executes
// create, update, delete, and bulk-upload operations against the
// correct remote collection, reconciles the local working set, and
// fans out cache invalidation after every successful mutation.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/hearthledger/internal/cache"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
	"github.com/Veraticus/hearthledger/internal/session"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Coordinator orchestrates mutations for one view session.
type Coordinator struct {
	budget      service.CollectionSource
	projected   service.CollectionSource
	importer    service.Importer
	config      service.ConfigSource
	invalidator *cache.Invalidator
	session     *session.Session
	deleteLimit int
}

// Config holds configuration options for the coordinator.
type Config struct {
	// DeleteConcurrency bounds how many deletes run in parallel.
	DeleteConcurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{DeleteConcurrency: 4}
}

// New creates a coordinator with the default configuration.
func New(budget, projected service.CollectionSource, importer service.Importer, config service.ConfigSource, invalidator *cache.Invalidator, sess *session.Session) *Coordinator {
	return NewWithConfig(budget, projected, importer, config, invalidator, sess, DefaultConfig())
}

// NewWithConfig creates a coordinator with custom configuration.
func NewWithConfig(budget, projected service.CollectionSource, importer service.Importer, config service.ConfigSource, invalidator *cache.Invalidator, sess *session.Session, cfg Config) *Coordinator {
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = DefaultConfig().DeleteConcurrency
	}
	return &Coordinator{
		budget:      budget,
		projected:   projected,
		importer:    importer,
		config:      config,
		invalidator: invalidator,
		session:     sess,
		deleteLimit: cfg.DeleteConcurrency,
	}
}

// Create validates and persists a draft row. The draft is shown
// optimistically in the working set immediately; on success its
// temporary id is replaced by the server entity with the Source flag
// preserved, and on failure the draft stays present and editable with
// an error recorded against its id.
func (c *Coordinator) Create(ctx context.Context, draft model.Transaction) error {
	if draft.ID == "" {
		draft.ID = model.NewTempID()
	}
	draft.IsNew = true
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = c.config.DefaultPaymentMethod(draft.Account)
	}
	if draft.Date.IsZero() {
		draft.Date = time.Now()
	}

	c.session.AddLocal(draft)

	if err := validateDraft(draft, c.config); err != nil {
		c.session.SetRowError(draft.ID, common.UserMessage(err))
		return err
	}

	attempted := model.ParseAccountRef(draft.Account)
	c.session.SetState(draft.ID, session.RowSaving)

	saved, err := c.collectionFor(draft.Source).Create(ctx, draft)
	if err != nil {
		c.session.SetState(draft.ID, session.RowDraft)
		c.session.SetRowError(draft.ID, common.UserMessage(err))
		return fmt.Errorf("%w: create %s: %v", common.ErrRemote, draft.ID, err)
	}

	saved.Source = draft.Source
	saved.IsNew = false
	c.session.ReplaceRow(draft.ID, saved)

	c.invalidator.Invalidate(&attempted, draft.StatementPeriod, c.config.MemberAccounts())

	// The server may have redistributed a joint-entered row to a
	// member account; the assigned account is only knowable from the
	// response, so fan out for it as well.
	assigned := model.ParseAccountRef(saved.Account)
	if !assigned.Equal(attempted) && !assigned.IsZero() {
		slog.Info("Server reassigned transaction account",
			"attempted", attempted.String(),
			"assigned", assigned.String(),
			"id", saved.ID)
		c.invalidator.Invalidate(&assigned, saved.StatementPeriod, c.config.MemberAccounts())
	}
	return nil
}

// Patch carries the fields an update may change. Nil fields are left
// untouched.
type Patch struct {
	Name            *string
	Amount          *decimal.Decimal
	Category        *string
	Criticality     *string
	PaymentMethod   *string
	Memo            *string
	Date            *time.Time
	Account         *string
	StatementPeriod *model.StatementPeriod
}

// Update merges a patch into an existing persisted row and saves it to
// the row's owning collection. On failure the owning scope is
// invalidated so the next read resyncs from the server: the local
// optimistic value may be wrong and is not trusted.
func (c *Coordinator) Update(ctx context.Context, id string, patch Patch) error {
	row, ok := c.session.Row(id)
	if !ok {
		return fmt.Errorf("%w: row %s", common.ErrNotFound, id)
	}

	merged := applyPatch(row, patch)
	account := model.ParseAccountRef(merged.Account)
	c.session.SetState(id, session.RowSaving)

	saved, err := c.collectionFor(row.Source).Update(ctx, id, merged)
	if err != nil {
		c.session.SetState(id, session.RowPersisted)
		c.session.SetRowError(id, common.UserMessage(err))
		c.invalidator.Invalidate(&account, merged.StatementPeriod, c.config.MemberAccounts())
		return fmt.Errorf("%w: update %s: %v", common.ErrRemote, id, err)
	}

	saved.Source = row.Source
	c.session.ReplaceRow(id, saved)
	c.session.ClearRowError(saved.ID)
	c.invalidator.Invalidate(&account, saved.StatementPeriod, c.config.MemberAccounts())
	return nil
}

// Delete removes the given rows. Local-only drafts are dropped
// immediately with no network call; persisted rows are deleted from
// their owning collections in parallel, best-effort: one failure is
// logged and does not abort the others. It returns the number of rows
// removed.
func (c *Coordinator) Delete(ctx context.Context, ids []string) int {
	var localOnly []string
	var persisted []model.Transaction
	for _, id := range ids {
		row, ok := c.session.Row(id)
		if !ok {
			continue
		}
		if row.IsNew || row.IsTemp() {
			localOnly = append(localOnly, id)
			continue
		}
		persisted = append(persisted, row)
	}

	if len(localOnly) > 0 {
		c.session.RemoveRows(localOnly)
	}

	removed := make([]string, 0, len(persisted))
	accounts := make(map[string]model.StatementPeriod)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.deleteLimit)
	results := make([]bool, len(persisted))
	for i, row := range persisted {
		g.Go(func() error {
			if err := c.collectionFor(row.Source).Delete(gctx, row.ID); err != nil {
				common.LogError(err, "Delete failed, skipping row", common.Fields{
					"id":     row.ID,
					"source": string(row.Source),
				})
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, row := range persisted {
		if results[i] {
			removed = append(removed, row.ID)
			accounts[row.Account] = row.StatementPeriod
		}
	}

	if len(removed) > 0 {
		c.session.RemoveRows(removed)
		for account, period := range accounts {
			ref := model.ParseAccountRef(account)
			c.invalidator.Invalidate(&ref, period, c.config.MemberAccounts())
		}
	}
	return len(localOnly) + len(removed)
}

// Upload runs the bulk statement import against the budget collection.
// It is atomic from the caller's view: on success every scope the
// import may have touched is invalidated for refetch, and on failure
// nothing is reconciled locally.
func (c *Coordinator) Upload(ctx context.Context, file io.Reader, filename string, period model.StatementPeriod) (*service.ImportResult, error) {
	result, err := c.importer.Import(ctx, file, filename, period)
	if err != nil {
		return nil, common.NewUserError("statement import failed", fmt.Errorf("%w: %v", common.ErrRemote, err))
	}

	slog.Info("Statement imported",
		"period", string(period),
		"imported", result.Imported,
		"skipped", result.Skipped)

	// Imported rows can land on any account, so fan out as widely as a
	// joint mutation plus the un-scoped lists.
	joint := model.Joint()
	c.invalidator.Invalidate(nil, period, c.config.MemberAccounts())
	c.invalidator.Invalidate(&joint, period, c.config.MemberAccounts())
	return result, nil
}

// Invalidate is the manual escape hatch: it fans out for the given
// account (or all scopes when account is empty) at the session's
// current period.
func (c *Coordinator) Invalidate(account string) []cache.Key {
	period := c.session.Period()
	if account == "" {
		return c.invalidator.Invalidate(nil, period, c.config.MemberAccounts())
	}
	ref := model.ParseAccountRef(account)
	return c.invalidator.Invalidate(&ref, period, c.config.MemberAccounts())
}

// collectionFor routes a row to its owning collection by Source.
func (c *Coordinator) collectionFor(source model.Source) service.CollectionSource {
	if source == model.SourceProjected {
		return c.projected
	}
	return c.budget
}

func applyPatch(row model.Transaction, patch Patch) model.Transaction {
	if patch.Name != nil {
		row.Name = *patch.Name
	}
	if patch.Amount != nil {
		row.Amount = *patch.Amount
	}
	if patch.Category != nil {
		row.Category = *patch.Category
	}
	if patch.Criticality != nil {
		row.Criticality = *patch.Criticality
	}
	if patch.PaymentMethod != nil {
		row.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Memo != nil {
		row.Memo = *patch.Memo
	}
	if patch.Date != nil {
		row.Date = *patch.Date
	}
	if patch.Account != nil {
		row.Account = *patch.Account
	}
	if patch.StatementPeriod != nil {
		row.StatementPeriod = *patch.StatementPeriod
	}
	return row
}
