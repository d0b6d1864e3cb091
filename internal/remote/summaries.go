package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
	"github.com/shopspring/decimal"
)

// summaries implements the payment-summary read.
type summaries struct {
	client *Client
}

type wireSummary struct {
	StatementPeriod string            `json:"statementPeriod"`
	Accounts        []string          `json:"accounts"`
	ByPaymentMethod map[string]string `json:"byPaymentMethod"`
	TotalActual     string            `json:"totalActual"`
	TotalProjected  string            `json:"totalProjected"`
}

// Fetch reads the payment summary for an account set and period.
func (s *summaries) Fetch(ctx context.Context, accounts []string, period model.StatementPeriod) (*service.PaymentSummary, error) {
	q := url.Values{}
	q.Set("accounts", service.JoinAccounts(accounts))
	q.Set("statementPeriod", string(period))

	body, err := s.client.getJSON(ctx, "/api/payment-summaries", q)
	if err != nil {
		return nil, err
	}

	var w wireSummary
	if err := decodeJSON(body, &w); err != nil {
		return nil, err
	}

	byMethod := make(map[string]decimal.Decimal, len(w.ByPaymentMethod))
	for method, amount := range w.ByPaymentMethod {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: payment summary: bad amount %q for %s: %v", common.ErrRemote, amount, method, err)
		}
		byMethod[method] = d
	}

	totalActual, err := decimal.NewFromString(w.TotalActual)
	if err != nil {
		return nil, fmt.Errorf("%w: payment summary: bad actual total %q: %v", common.ErrRemote, w.TotalActual, err)
	}
	totalProjected, err := decimal.NewFromString(w.TotalProjected)
	if err != nil {
		return nil, fmt.Errorf("%w: payment summary: bad projected total %q: %v", common.ErrRemote, w.TotalProjected, err)
	}

	return &service.PaymentSummary{
		GeneratedAt:     time.Now(),
		StatementPeriod: model.StatementPeriod(w.StatementPeriod),
		Accounts:        w.Accounts,
		ByPaymentMethod: byMethod,
		TotalActual:     totalActual,
		TotalProjected:  totalProjected,
	}, nil
}
