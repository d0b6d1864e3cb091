// Package model defines the core domain types for the household ledger.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies which remote collection a transaction belongs to.
// It is resolved once at the boundary and preserved through every local
// transformation; it is never sent to the server.
type Source string

const (
	// SourceBudget marks an actual (posted) transaction.
	SourceBudget Source = "budget"
	// SourceProjected marks a planned transaction.
	SourceProjected Source = "projected"
)

// tempIDPrefix marks client-generated ids that have never been persisted.
const tempIDPrefix = "tmp-"

// Transaction represents a single ledger row, actual or projected.
type Transaction struct {
	Date            time.Time
	ID              string
	Account         string
	StatementPeriod StatementPeriod
	Name            string
	Category        string
	Criticality     string
	PaymentMethod   string
	Memo            string
	Amount          decimal.Decimal
	Source          Source
	IsNew           bool
}

// NewTempID generates a client-side temporary id. Temporary ids exist
// only in the local working set and never appear in a request payload.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTemp reports whether the transaction carries a client-generated id.
func (t Transaction) IsTemp() bool {
	return strings.HasPrefix(t.ID, tempIDPrefix)
}

// ParseAmount parses a user-entered amount into a decimal value.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not numeric: %w", s, err)
	}
	return d, nil
}

// SortByDateDesc sorts transactions newest-first in place. Rows with
// equal timestamps keep their fetched order.
func SortByDateDesc(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date)
	})
}
