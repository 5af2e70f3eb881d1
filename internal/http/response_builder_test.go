package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"savvy/internal/dashboard"
	"savvy/internal/forms"
	"savvy/internal/viewmodel"
)

func TestResponseBuilderNotifyResult(t *testing.T) {
	tests := []struct {
		name string
		res  dashboard.Result
		want *Notification
	}{
		{"success", dashboard.Result{OK: true, Title: "Goal added", Message: "done"}, &Notification{Type: NotificationSuccess, Title: "Goal added", Message: "done", Duration: 3000}},
		{"failure", dashboard.Result{Title: "Error deleting goal", Message: "gone"}, &Notification{Type: NotificationError, Title: "Error deleting goal", Message: "gone", Duration: 5000}},
		{"empty", dashboard.Result{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewResponse().NotifyResult(tt.res).Write(rec)

			raw := rec.Header().Get("HX-Trigger")
			if tt.want == nil {
				if raw != "" {
					t.Fatalf("unexpected trigger %s", raw)
				}
				return
			}
			var got map[string]Notification
			if err := json.Unmarshal([]byte(raw), &got); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(*tt.want, got["show-notification"]); diff != "" {
				t.Errorf("notification mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResponseBuilderBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Status(http.StatusCreated).JSON(map[string]int{"n": 1}).Write(rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"n":1}` {
		t.Fatalf("body %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(rec)
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Type") != "" {
		t.Fatal("empty response must not carry a body")
	}
}

func TestValidationErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(forms.FieldErrors{"amount": "Amount must be positive"}).Write(rec)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Fields["amount"] != "Amount must be positive" {
		t.Fatalf("fields %v", body.Fields)
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name string
		body string
		want forms.TransactionForm
	}{
		{
			"json with number",
			`{"description":" Coffee ","amount":12.5,"category":"Dining","type":"want","date":"2023-04-01"}`,
			forms.TransactionForm{Description: "Coffee", Amount: "12.5", Category: "Dining", Type: "want", Date: "2023-04-01"},
		},
		{
			"form encoded",
			"description=Bus%09pass%01&amount=3&category=Transportation&type=need&date=2023-04-01",
			forms.TransactionForm{Description: "Bus\tpass", Amount: "3", Category: "Transportation", Type: "need", Date: "2023-04-01"},
		},
		{"empty", "", forms.TransactionForm{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, p.TransactionForm()); diff != "" {
				t.Errorf("form mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestBodyParserRejectsOversizedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(strings.Repeat("a", maxBodyBytes+10)))
	if err := NewRequestBodyParser(r).Parse(); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestParseSortState(t *testing.T) {
	got, err := ParseSortState(url.Values{"sort": {"category"}}, "sort", "dir")
	if err != nil {
		t.Fatal(err)
	}
	want := viewmodel.SortState{Field: viewmodel.SortByCategory, Direction: viewmodel.Desc}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := ParseSortState(url.Values{"dir": {"sideways"}}, "sort", "dir"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}
