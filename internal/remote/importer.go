package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// importer implements the bulk statement import against the budget
// collection. The import is atomic on the server; the client never
// reconciles partial results.
type importer struct {
	client *Client
}

// Import uploads a statement file for one period.
func (im *importer) Import(ctx context.Context, file io.Reader, filename string, period model.StatementPeriod) (*service.ImportResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read statement file: %w", err)
	}
	if err := form.WriteField("statementPeriod", string(period)); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	endpoint := im.client.baseURL + "/api/budget-transactions/import"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := im.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: import: %v", common.ErrRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: import: %d - %s", common.ErrRemote, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result wireImportResult
	if err := decodeJSONBody(resp.Body, &result); err != nil {
		return nil, err
	}
	return &service.ImportResult{
		StatementPeriod: period,
		Imported:        result.Imported,
		Skipped:         result.Skipped,
		Warnings:        result.Warnings,
	}, nil
}

type wireImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings"`
}
