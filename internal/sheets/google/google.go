package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"savvy/internal/records"
	ports "savvy/internal/sheets"
)

// Ensure interface conformance
var _ ports.Ledger = (*Client)(nil)

// Config names the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID string
	// LedgerSheet is the transactions tab; GoalsSheet the goals tab.
	LedgerSheet string
	GoalsSheet  string

	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	goalsSheet    string
	logger        *slog.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New creates a Sheets client. Without extra options it authenticates with
// the service account named in cfg; tests pass an endpoint instead.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LedgerSheet == "" {
		cfg.LedgerSheet = "Ledger"
	}
	if cfg.GoalsSheet == "" {
		cfg.GoalsSheet = "Goals"
	}

	if len(opts) == 0 {
		creds, err := serviceAccountCredentials(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"ledger_sheet", cfg.LedgerSheet,
		"goals_sheet", cfg.GoalsSheet)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerSheet:   cfg.LedgerSheet,
		goalsSheet:    cfg.GoalsSheet,
		logger:        logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// serviceAccountCredentials reads inline JSON first, then the key file.
func serviceAccountCredentials(ctx context.Context, cfg Config, logger *slog.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)

	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// NewHTTPClient returns a pooled client suited to the Sheets API. Pass it
// with option.WithHTTPClient when the default transport is not enough.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) EnsureHeaders(ctx context.Context) error {
	if err := c.ensureHeader(ctx, c.ledgerSheet, ports.TransactionHeader); err != nil {
		return err
	}
	return c.ensureHeader(ctx, c.goalsSheet, ports.GoalHeader)
}

func (c *Client) ensureHeader(ctx context.Context, sheet string, header []string) error {
	rng := fmt.Sprintf("%s!A1:%s1", sheet, lastColumn(len(header)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if ports.HasHeader(resp.Values, header) {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.HeaderValues(header)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Wrote sheet header", "sheet", sheet)
	return nil
}

func (c *Client) UpsertTransaction(ctx context.Context, row records.TransactionRow) (string, error) {
	return c.upsertRow(ctx, c.ledgerSheet, row.ID, ports.TransactionValues(row))
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.deleteRow(ctx, c.ledgerSheet, id)
}

func (c *Client) UpsertGoal(ctx context.Context, row records.GoalRow) (string, error) {
	return c.upsertRow(ctx, c.goalsSheet, row.ID, ports.GoalValues(row))
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.deleteRow(ctx, c.goalsSheet, id)
}

// upsertRow rewrites the row carrying id in place, or appends a new one.
func (c *Client) upsertRow(ctx context.Context, sheet, id string, values []any) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("row without ID")
	}
	n, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return "", err
	}
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	last := lastColumn(len(values))

	if n > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", sheet, n, last, n)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	rng := fmt.Sprintf("%s!A:%s", sheet, last)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func (c *Client) deleteRow(ctx context.Context, sheet, id string) error {
	n, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrRowNotFound
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
					// zero is a valid sheet ID and start index
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, sheet, err)
	}
	return nil
}

func (c *Client) findRow(ctx context.Context, sheet, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return ports.FindRow(resp.Values, id), nil
}

// sheetID resolves a tab title to its numeric ID, caching the answer.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", title)
	}
	return id, nil
}

// lastColumn returns the letter of column n (1-based, up to 26).
func lastColumn(n int) string {
	if n < 1 {
		n = 1
	}
	if n > 26 {
		n = 26
	}
	return string(rune('A' + n - 1))
}
