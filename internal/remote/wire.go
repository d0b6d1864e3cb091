package remote

import (
	"fmt"
	"time"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/shopspring/decimal"
)

// wireTransaction is the server's transaction shape. Client-only fields
// (isNew, the source tag) never appear here, and the id is only ever
// decoded from responses, never encoded into requests; the routing flag
// is re-applied from context after decoding.
type wireTransaction struct {
	ID              string `json:"id,omitempty"`
	Account         string `json:"account"`
	StatementPeriod string `json:"statementPeriod"`
	Amount          string `json:"amount"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	Criticality     string `json:"criticality,omitempty"`
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	Memo            string `json:"memo,omitempty"`
	TransactionDate string `json:"transactionDate"`
}

// toWire strips client-only fields and encodes a row for the server.
// The id is never emitted: creates have no persistent id yet and
// updates carry theirs in the URL path.
func toWire(txn model.Transaction) wireTransaction {
	return wireTransaction{
		Account:         txn.Account,
		StatementPeriod: string(txn.StatementPeriod),
		Amount:          txn.Amount.String(),
		Name:            txn.Name,
		Category:        txn.Category,
		Criticality:     txn.Criticality,
		PaymentMethod:   txn.PaymentMethod,
		Memo:            txn.Memo,
		TransactionDate: txn.Date.UTC().Format(time.RFC3339),
	}
}

// toModel decodes a server row, tagging it with the collection it came
// from.
func (w wireTransaction) toModel(source model.Source) (model.Transaction, error) {
	amount, err := decimal.NewFromString(w.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("row %s: bad amount %q: %w", w.ID, w.Amount, err)
	}
	date, err := time.Parse(time.RFC3339, w.TransactionDate)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("row %s: bad transaction date %q: %w", w.ID, w.TransactionDate, err)
	}
	return model.Transaction{
		ID:              w.ID,
		Account:         w.Account,
		StatementPeriod: model.StatementPeriod(w.StatementPeriod),
		Amount:          amount,
		Name:            w.Name,
		Category:        w.Category,
		Criticality:     w.Criticality,
		PaymentMethod:   w.PaymentMethod,
		Memo:            w.Memo,
		Date:            date,
		Source:          source,
	}, nil
}

func toModels(rows []wireTransaction, source model.Source) ([]model.Transaction, error) {
	out := make([]model.Transaction, 0, len(rows))
	for _, w := range rows {
		txn, err := w.toModel(source)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}
