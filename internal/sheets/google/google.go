// Package google mirrors the expense store into a Google Sheets tab using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "expensetracker/internal/sheets"
	"expensetracker/internal/store"
)

var _ ports.SnapshotWriter = (*Client)(nil)

// Config selects the spreadsheet and the credentials. One of
// ServiceAccountJSON or ServiceAccountFile is required unless HTTPClient is
// set.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	// Endpoint and HTTPClient point the client at another server; the
	// HTTP client is used without authentication.
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// New creates a Sheets client for cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	opts, err := serviceOptions(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        slog.Default().With("component", "sheets"),
	}, nil
}

func serviceOptions(cfg Config) ([]goption.ClientOption, error) {
	var opts []goption.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, goption.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		return append(opts, goption.WithHTTPClient(cfg.HTTPClient)), nil
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	return append(opts,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope)), nil
}

// ReplaceAll clears columns A:Z of the sheet and writes the header and rows
// from A1. Values are written RAW so amounts and dates are not reinterpreted.
func (c *Client) ReplaceAll(ctx context.Context, t *store.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := c.a1("A:Z")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := toValues(t)
	if len(values) == 0 {
		return nil
	}
	writeRange := c.a1("A1")
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	c.logger.DebugContext(ctx, "Sheet replaced", "sheet", c.sheetName, "rows", len(values)-1)
	return nil
}

// a1 builds an A1 range on the configured sheet, quoting the sheet name.
func (c *Client) a1(cells string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + cells
}

func toValues(t *store.Table) [][]any {
	if t == nil || len(t.Header) == 0 {
		return nil
	}
	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, toAny(t.Header))
	for _, row := range t.Rows {
		values = append(values, toAny(row))
	}
	return values
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
