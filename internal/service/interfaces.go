// Package service defines the contracts between the reconciliation
// engine and its external collaborators: the ledger server's budget and
// projected collections, the bulk importer, the payment-summary read,
// and the household configuration.
package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/shopspring/decimal"
)

// Filter narrows a collection fetch. Zero-valued fields are omitted.
// Callers must build filters through one path per resource so that the
// cache sees one canonical shape.
type Filter struct {
	Account         string
	StatementPeriod model.StatementPeriod
	Category        string
	Criticality     string
	PaymentMethod   string
	// Accounts is the canonical comma-joined member list used only by
	// aggregate payment-summary reads.
	Accounts string
}

// IsZero reports whether the filter carries no constraints.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Encode renders the filter in a fixed field order for logging and
// snapshot keys. Field order is part of the canonical shape and is
// never re-sorted.
func (f Filter) Encode() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("account", f.Account)
	add("period", string(f.StatementPeriod))
	add("category", f.Category)
	add("criticality", f.Criticality)
	add("paymentMethod", f.PaymentMethod)
	add("accounts", f.Accounts)
	return strings.Join(parts, "&")
}

// Matches reports whether a transaction satisfies the filter's equality
// constraints. Account is intentionally not matched here; account
// scoping is the server's job and global fetches return mixed accounts.
func (f Filter) Matches(txn model.Transaction) bool {
	if f.StatementPeriod != "" && txn.StatementPeriod != f.StatementPeriod {
		return false
	}
	if f.Category != "" && txn.Category != f.Category {
		return false
	}
	if f.Criticality != "" && txn.Criticality != f.Criticality {
		return false
	}
	if f.PaymentMethod != "" && txn.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// JoinAccounts renders a member list in the canonical form used by
// aggregate payment-summary filters.
func JoinAccounts(accounts []string) string {
	return strings.Join(accounts, ",")
}

// SplitRows is the account-scoped fetch shape: rows belonging to the
// requested account plus that account's share of the joint account.
type SplitRows struct {
	Personal []model.Transaction
	Joint    []model.Transaction
}

// CollectionSource is one remote transaction collection. The engine
// holds two instances, budget and projected, and routes every row by
// its Source flag.
type CollectionSource interface {
	// Fetch returns the account-scoped personal/joint split.
	Fetch(ctx context.Context, filter Filter) (SplitRows, error)
	// FetchAll returns the global list, client-filtered by the
	// filter's equality fields when the server cannot filter natively.
	FetchAll(ctx context.Context, filter Filter) ([]model.Transaction, error)
	Create(ctx context.Context, txn model.Transaction) (model.Transaction, error)
	Update(ctx context.Context, id string, txn model.Transaction) (model.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// Importer performs the bulk statement import against the budget
// collection. Success or failure is atomic from the caller's view.
type Importer interface {
	Import(ctx context.Context, file io.Reader, filename string, period model.StatementPeriod) (*ImportResult, error)
}

// SummarySource reads payment summaries keyed by account set and period.
type SummarySource interface {
	Fetch(ctx context.Context, accounts []string, period model.StatementPeriod) (*PaymentSummary, error)
}

// ConfigSource exposes the household configuration the engine validates
// and fans out against.
type ConfigSource interface {
	// Categories returns the configured category enumeration, empty
	// when categories are unconstrained.
	Categories() []string
	// CriticalityLevels returns the configured criticality
	// enumeration, empty when unconstrained.
	CriticalityLevels() []string
	// DefaultPaymentMethod returns the configured default for an
	// account, empty when none is configured.
	DefaultPaymentMethod(account string) string
	// MemberAccounts returns the canonical list of member accounts
	// used to resolve joint fan-out targets.
	MemberAccounts() []string
}

// ImportResult summarizes one bulk import.
type ImportResult struct {
	StatementPeriod model.StatementPeriod
	Imported        int
	Skipped         int
	Warnings        []string
}

// PaymentSummary aggregates spending per payment method for one account
// set and statement period.
type PaymentSummary struct {
	GeneratedAt     time.Time
	StatementPeriod model.StatementPeriod
	Accounts        []string
	ByPaymentMethod map[string]decimal.Decimal
	TotalActual     decimal.Decimal
	TotalProjected  decimal.Decimal
}

// RetryOptions configures retry behavior for idempotent reads. Mutations
// are never retried; a failed mutation surfaces its error for the
// caller to retry explicitly.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
