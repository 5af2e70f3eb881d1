package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(perMinute, maxClients int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)}
	return NewLimiter(Config{RequestsPerMinute: perMinute, MaxClients: maxClients, Now: clock.Now}), clock
}

func TestAllowWindow(t *testing.T) {
	rl, clock := newTestLimiter(3, 0)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are independent")
	}

	// steady traffic must not extend the window
	clock.Advance(30 * time.Second)
	if rl.Allow("a") {
		t.Fatal("still inside the window")
	}
	if got := rl.RetryAfter("a"); got != 30 {
		t.Fatalf("retry after = %d", got)
	}
	clock.Advance(30 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("window should have reset")
	}

	if s := rl.Stats(); s.Rejected != 2 || s.Clients != 2 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestIdleClientsExpire(t *testing.T) {
	rl, clock := newTestLimiter(10, 0)
	rl.Allow("idle")
	clock.Advance(2 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.CleanExpired(); removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if s := rl.Stats(); s.Clients != 1 {
		t.Fatalf("clients = %d", s.Clients)
	}
	if rl.RetryAfter("idle") != 0 {
		t.Fatal("forgotten client has no window")
	}
}

func TestClientTableIsBounded(t *testing.T) {
	rl, _ := newTestLimiter(1, 2)
	rl.Allow("a")
	rl.Allow("b")
	rl.Allow("c")

	if s := rl.Stats(); s.Clients != 2 {
		t.Fatalf("clients = %d", s.Clients)
	}
	// a was evicted, so it starts a fresh window
	if !rl.Allow("a") {
		t.Fatal("evicted client should be allowed")
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(1, 0)
	ip := func(*http.Request) string { return "1.1.1.1" }
	h := rl.Middleware(ip, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("GET %d limited", i)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/goals", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/goals/g1", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second mutation = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("retry-after = %q", rec.Header().Get("Retry-After"))
	}
}
