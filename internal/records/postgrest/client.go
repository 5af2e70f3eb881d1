// Package postgrest is the hosted record store client. It speaks the
// PostgREST conventions used by the hosted backend: one resource per table
// under /rest/v1, column filters such as id=eq.<value>, and
// Prefer: return=representation to get written rows back.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"savvy/internal/core"
	"savvy/internal/records"
)

const (
	transactionsTable = "transactions"
	goalsTable        = "savings_goals"
)

// TokenFunc returns the bearer token of the session behind ctx.
type TokenFunc func(ctx context.Context) string

type Client struct {
	baseURL    string
	apiKey     string
	token      TokenFunc
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// WithTokenFunc sends the session's token instead of the anon key, so the
// store's row policies apply to the signed-in user.
func WithTokenFunc(f TokenFunc) Option {
	return func(cl *Client) { cl.token = f }
}

func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("postgrest: baseURL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("postgrest: apiKey is required")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(table string, q url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) bearer(ctx context.Context) string {
	if c.token != nil {
		if t := c.token(ctx); t != "" {
			return t
		}
	}
	return c.apiKey
}

// do executes one request and decodes a JSON array answer into dst.
func (c *Client) do(ctx context.Context, method, u, op string, body any, dst any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer(ctx))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "record store response",
		"operation", op, "method", method, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Op: op, Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
			if apiErr.Message == "" {
				apiErr.Message = resp.Status
			}
		}
		return apiErr
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

func ownerFilter(owner string) url.Values {
	q := url.Values{}
	q.Set("user_id", "eq."+owner)
	return q
}

func rowFilter(owner, id string) url.Values {
	q := ownerFilter(owner)
	q.Set("id", "eq."+id)
	return q
}

func (c *Client) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	q := ownerFilter(owner)
	q.Set("select", "*")
	q.Set("order", "date.desc")
	var rows []records.TransactionRow
	if err := c.do(ctx, http.MethodGet, c.endpoint(transactionsTable, q), "list transactions", nil, &rows); err != nil {
		return nil, err
	}
	return records.TransactionsFromRows(rows)
}

func (c *Client) InsertTransaction(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	row := records.TransactionInputToRow(in)
	row.UserID = owner
	var rows []records.TransactionRow
	if err := c.do(ctx, http.MethodPost, c.endpoint(transactionsTable, nil), "insert transaction", []records.TransactionRow{row}, &rows); err != nil {
		return core.Transaction{}, err
	}
	if len(rows) == 0 {
		return core.Transaction{}, fmt.Errorf("insert transaction: empty representation")
	}
	return records.TransactionFromRow(rows[0])
}

func (c *Client) DeleteTransaction(ctx context.Context, owner, id string) error {
	var rows []records.TransactionRow
	if err := c.do(ctx, http.MethodDelete, c.endpoint(transactionsTable, rowFilter(owner, id)), "delete transaction", nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, records.ErrNotFound)
	}
	return nil
}

func (c *Client) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	q := ownerFilter(owner)
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	var rows []records.GoalRow
	if err := c.do(ctx, http.MethodGet, c.endpoint(goalsTable, q), "list goals", nil, &rows); err != nil {
		return nil, err
	}
	return records.GoalsFromRows(rows)
}

func (c *Client) InsertGoal(ctx context.Context, owner string, in core.GoalInput) (core.SavingsGoal, error) {
	row := records.GoalInputToRow(in)
	row.UserID = owner
	var rows []records.GoalRow
	if err := c.do(ctx, http.MethodPost, c.endpoint(goalsTable, nil), "insert goal", []records.GoalRow{row}, &rows); err != nil {
		return core.SavingsGoal{}, err
	}
	if len(rows) == 0 {
		return core.SavingsGoal{}, fmt.Errorf("insert goal: empty representation")
	}
	return records.GoalFromRow(rows[0])
}

func (c *Client) UpdateGoal(ctx context.Context, owner, id string, in core.GoalInput) (core.SavingsGoal, error) {
	var rows []records.GoalRow
	if err := c.do(ctx, http.MethodPatch, c.endpoint(goalsTable, rowFilter(owner, id)), "update goal", records.GoalInputToRow(in), &rows); err != nil {
		return core.SavingsGoal{}, err
	}
	if len(rows) == 0 {
		return core.SavingsGoal{}, fmt.Errorf("update goal %s: %w", id, records.ErrNotFound)
	}
	return records.GoalFromRow(rows[0])
}

func (c *Client) DeleteGoal(ctx context.Context, owner, id string) error {
	var rows []records.GoalRow
	if err := c.do(ctx, http.MethodDelete, c.endpoint(goalsTable, rowFilter(owner, id)), "delete goal", nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("delete goal %s: %w", id, records.ErrNotFound)
	}
	return nil
}

var _ records.Store = (*Client)(nil)
