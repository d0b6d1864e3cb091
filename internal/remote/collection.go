package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// collection implements service.CollectionSource for one of the two
// transaction collections.
type collection struct {
	client *Client
	path   string
	source model.Source
}

// Fetch returns the account-scoped personal/joint split.
func (c *collection) Fetch(ctx context.Context, filter service.Filter) (service.SplitRows, error) {
	if filter.Account == "" {
		return service.SplitRows{}, fmt.Errorf("account-scoped fetch requires an account")
	}
	path := fmt.Sprintf("/api/%s/accounts/%s", c.path, url.PathEscape(filter.Account))
	body, err := c.client.getJSON(ctx, path, queryFor(filter))
	if err != nil {
		return service.SplitRows{}, err
	}

	split, err := decodeSplit(body)
	if err != nil {
		return service.SplitRows{}, fmt.Errorf("%s fetch: %w", c.path, err)
	}
	personal, err := toModels(split.Personal, c.source)
	if err != nil {
		return service.SplitRows{}, err
	}
	joint, err := toModels(split.Joint, c.source)
	if err != nil {
		return service.SplitRows{}, err
	}
	return service.SplitRows{Personal: personal, Joint: joint}, nil
}

// FetchAll returns the global list. The filter is always re-applied
// client-side, so a server that ignored it and one that honored it are
// indistinguishable to the cache.
func (c *collection) FetchAll(ctx context.Context, filter service.Filter) ([]model.Transaction, error) {
	body, err := c.client.getJSON(ctx, "/api/"+c.path, queryFor(filter))
	if err != nil {
		return nil, err
	}

	raw, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", c.path, err)
	}
	rows, err := toModels(raw, c.source)
	if err != nil {
		return nil, err
	}

	filtered := rows[:0]
	for _, txn := range rows {
		if filter.Matches(txn) {
			filtered = append(filtered, txn)
		}
	}
	return filtered, nil
}

// Create persists a new row. The draft's temporary id is stripped from
// the payload; the server assigns the persistent id.
func (c *collection) Create(ctx context.Context, txn model.Transaction) (model.Transaction, error) {
	var saved wireTransaction
	if err := c.client.send(ctx, http.MethodPost, "/api/"+c.path, toWire(txn), &saved); err != nil {
		return model.Transaction{}, err
	}
	return saved.toModel(c.source)
}

// Update replaces a persisted row.
func (c *collection) Update(ctx context.Context, id string, txn model.Transaction) (model.Transaction, error) {
	var saved wireTransaction
	path := fmt.Sprintf("/api/%s/%s", c.path, url.PathEscape(id))
	if err := c.client.send(ctx, http.MethodPut, path, toWire(txn), &saved); err != nil {
		return model.Transaction{}, err
	}
	return saved.toModel(c.source)
}

// Delete removes a persisted row.
func (c *collection) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/%s/%s", c.path, url.PathEscape(id))
	return c.client.send(ctx, http.MethodDelete, path, nil, nil)
}
