// Package ratelimit throttles mutating requests per client.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"savvy/internal/cache"
)

const window = time.Minute

// Limiter allows each client a fixed number of mutations per one-minute
// window. Windows are kept in a bounded LRU: a client idle for a whole
// window is forgotten, and past MaxClients the least recently seen one is.
type Limiter struct {
	windows  *cache.LRUCache[clientWindow]
	limit    int
	now      func() time.Time
	rejected atomic.Int64
}

type clientWindow struct {
	start time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	MaxClients        int
	// Now overrides the clock; tests only.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Limiter{
		windows: cache.NewLRUCache[clientWindow](config.MaxClients, window).WithClock(config.Now),
		limit:   config.RequestsPerMinute,
		now:     config.Now,
	}
}

// Allow counts a request from client and reports whether it fits in the
// client's current window. Rejected requests count too.
func (l *Limiter) Allow(client string) bool {
	now := l.now()
	allowed := true
	l.windows.UpdateTTL(client, func(w clientWindow, ok bool) (clientWindow, time.Duration, bool) {
		if !ok || now.Sub(w.start) >= window {
			return clientWindow{start: now, count: 1}, window, true
		}
		w.count++
		allowed = w.count <= l.limit
		return w, 0, true
	})
	if !allowed {
		l.rejected.Add(1)
	}
	return allowed
}

// RetryAfter returns the whole seconds until client's window resets.
func (l *Limiter) RetryAfter(client string) int {
	w, ok := l.windows.Get(client)
	if !ok {
		return 0
	}
	left := window - l.now().Sub(w.start)
	if left <= 0 {
		return 0
	}
	return int(left.Round(time.Second) / time.Second)
}

// CleanExpired drops idle clients. It lets a cache.Manager sweep the limiter.
func (l *Limiter) CleanExpired() int {
	return l.windows.CleanExpired()
}

// Stats is a point-in-time view for the metrics endpoint.
type Stats struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) Stats() Stats {
	return Stats{Rejected: l.rejected.Load(), Clients: l.windows.Size()}
}

// Middleware limits mutating requests per client. Safe methods pass
// through untouched. onLimit writes the 429 body; Retry-After is already set.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			if l.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(max(l.RetryAfter(key), 1)))
			onLimit(w, r)
		})
	}
}
