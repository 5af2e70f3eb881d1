package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"savvy/internal/records"
	ports "savvy/internal/sheets"
)

// fakeSheets serves the handful of Sheets v4 endpoints the client calls,
// backed by an in-memory grid per tab.
type fakeSheets struct {
	mu       sync.Mutex
	grids    map[string][][]any
	sheetIDs map[string]int64
	calls    []string
}

var singleRow = regexp.MustCompile(`^A(\d+):[A-Z](\d+)$`)

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		grids:    map[string][][]any{"Ledger": nil, "Goals": nil},
		sheetIDs: map[string]int64{"Ledger": 0, "Goals": 7},
	}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1")
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "":
		var sheets []map[string]any
		for title, id := range f.sheetIDs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"sheetId": id, "title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && path == ":batchUpdate":
		var body struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						SheetID    *int64 `json:"sheetId"`
						StartIndex *int64 `json:"startIndex"`
						EndIndex   int64  `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, req := range body.Requests {
			rg := req.DeleteDimension.Range
			if rg.SheetID == nil || rg.StartIndex == nil {
				http.Error(w, `{"error":{"code":400,"message":"missing sheetId"}}`, http.StatusBadRequest)
				return
			}
			for title, id := range f.sheetIDs {
				if id == *rg.SheetID {
					g := f.grids[title]
					f.grids[title] = append(g[:*rg.StartIndex], g[rg.EndIndex:]...)
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})

	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		appendCall := strings.HasSuffix(rng, ":append")
		rng = strings.TrimSuffix(rng, ":append")
		title, cells, _ := strings.Cut(rng, "!")

		switch {
		case r.Method == http.MethodGet:
			grid := f.grids[title]
			if m := singleRow.FindStringSubmatch(cells); m != nil {
				n, _ := strconv.Atoi(m[1])
				if n <= len(grid) {
					grid = grid[n-1 : n]
				} else {
					grid = nil
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": grid})

		case r.Method == http.MethodPut:
			var vr struct {
				Values [][]any `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&vr)
			m := singleRow.FindStringSubmatch(cells)
			n, _ := strconv.Atoi(m[1])
			for len(f.grids[title]) < n {
				f.grids[title] = append(f.grids[title], nil)
			}
			f.grids[title][n-1] = vr.Values[0]
			_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})

		case r.Method == http.MethodPost && appendCall:
			var vr struct {
				Values [][]any `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.grids[title] = append(f.grids[title], vr.Values...)
			n := len(f.grids[title])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"updates": map[string]any{"updatedRange": fmt.Sprintf("%s!A%d:H%d", title, n, n)},
			})
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) rows(title string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.grids[title]...)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func txRow(id, desc string) records.TransactionRow {
	created := time.Date(2023, 4, 2, 10, 0, 0, 0, time.UTC)
	return records.TransactionRow{
		ID: id, UserID: "user-1", Description: desc, Amount: decimal.RequireFromString("1200.50"),
		Category: "Groceries", Type: "need", Date: "2023-04-02", CreatedAt: &created,
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureHeadersIsIdempotent(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)

	for i := 0; i < 2; i++ {
		if err := c.EnsureHeaders(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	ledger := fake.rows("Ledger")
	if len(ledger) != 1 || !ports.HasHeader(ledger, ports.TransactionHeader) {
		t.Fatalf("ledger header = %v", ledger)
	}
	if !ports.HasHeader(fake.rows("Goals"), ports.GoalHeader) {
		t.Fatalf("goals header = %v", fake.rows("Goals"))
	}
}

func TestUpsertTransactionAppendsThenRewrites(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()
	if err := c.EnsureHeaders(ctx); err != nil {
		t.Fatal(err)
	}

	ref, err := c.UpsertTransaction(ctx, txRow("tx1", "Grocery Shopping"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Ledger!A2:H2" {
		t.Fatalf("ref = %q", ref)
	}
	if _, err := c.UpsertTransaction(ctx, txRow("tx2", "Movie Night")); err != nil {
		t.Fatal(err)
	}

	ref, err = c.UpsertTransaction(ctx, txRow("tx1", "Weekly groceries"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Ledger!A2:H2" {
		t.Fatalf("rewrite ref = %q", ref)
	}

	rows := fake.rows("Ledger")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
	want := []any{"tx1", "2023-04-02", "Weekly groceries", "Groceries", "need", "1200.5", "user-1", "2023-04-02T10:00:00Z"}
	for i, v := range want {
		if fmt.Sprint(rows[1][i]) != fmt.Sprint(v) {
			t.Fatalf("column %d = %v, want %v", i, rows[1][i], v)
		}
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()
	if err := c.EnsureHeaders(ctx); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"tx1", "tx2", "tx3"} {
		if _, err := c.UpsertTransaction(ctx, txRow(id, "row "+id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.DeleteTransaction(ctx, "tx2"); err != nil {
		t.Fatal(err)
	}
	rows := fake.rows("Ledger")
	if len(rows) != 3 || rows[1][0] != "tx1" || rows[2][0] != "tx3" {
		t.Fatalf("rows after delete = %v", rows)
	}

	if err := c.DeleteTransaction(ctx, "tx2"); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestGoalsUseTheirOwnTab(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()
	if err := c.EnsureHeaders(ctx); err != nil {
		t.Fatal(err)
	}

	goal := records.GoalRow{
		ID: "goal1", UserID: "user-1", Name: "Emergency Fund", IconName: "piggy-bank",
		TargetAmount: decimal.NewFromInt(50000), CurrentAmount: decimal.NewFromInt(20000), Deadline: "2023-12-31",
	}
	if _, err := c.UpsertGoal(ctx, goal); err != nil {
		t.Fatal(err)
	}
	if len(fake.rows("Goals")) != 2 || len(fake.rows("Ledger")) != 1 {
		t.Fatal("goal written to the wrong tab")
	}

	if err := c.DeleteGoal(ctx, "goal1"); err != nil {
		t.Fatal(err)
	}
	if len(fake.rows("Goals")) != 1 {
		t.Fatalf("goal row not deleted: %v", fake.rows("Goals"))
	}
}

func TestSheetIDIsCached(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id, err := c.sheetID(ctx, "Goals")
		if err != nil {
			t.Fatal(err)
		}
		if id != 7 {
			t.Fatalf("sheet id = %d", id)
		}
	}
	gets := 0
	for _, call := range fake.calls {
		if call == "GET " {
			gets++
		}
	}
	if gets != 1 {
		t.Fatalf("spreadsheet read %d times, want 1", gets)
	}

	if _, err := c.sheetID(ctx, "Missing"); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestUpsertRejectsRowWithoutID(t *testing.T) {
	c := newTestClient(t, newFakeSheets())
	if _, err := c.UpsertTransaction(context.Background(), records.TransactionRow{}); err == nil {
		t.Fatal("expected error")
	}
}
