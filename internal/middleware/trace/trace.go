// Package trace tags every request with an ID and counts outcomes.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"savvy/internal/log"
)

// HeaderRequestID is echoed back on every response.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.StructuredLogger

	requests      atomic.Int64
	clientErrors  atomic.Int64
	serverErrors  atomic.Int64
	totalDuration atomic.Int64 // microseconds
}

// Stats are cumulative since start.
type Stats struct {
	Requests     int64
	ClientErrors int64
	ServerErrors int64
	// MeanMicros is the mean handling time in microseconds.
	MeanMicros int64
}

func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if clientIP == nil {
		clientIP = func(*http.Request) string { return "" }
	}
	return &Middleware{
		clientIP: clientIP,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentTrace)),
	}
}

// Middleware reuses a well-formed incoming X-Request-ID and generates one
// otherwise. The ID is stored in the request context and echoed back.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := m.clientIP(r)

		id := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(id) {
			id = NewRequestID()
		}
		ctx := WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, id)

		m.logger.LogHTTPStart(ctx, r, ip, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.requests.Add(1)
		m.totalDuration.Add(elapsed.Microseconds())
		switch {
		case rec.status >= 500:
			m.serverErrors.Add(1)
		case rec.status >= 400:
			m.clientErrors.Add(1)
		}

		m.logger.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), ip, id)
	})
}

func (m *Middleware) Stats() Stats {
	s := Stats{
		Requests:     m.requests.Load(),
		ClientErrors: m.clientErrors.Load(),
		ServerErrors: m.serverErrors.Load(),
	}
	if s.Requests > 0 {
		s.MeanMicros = m.totalDuration.Load() / s.Requests
	}
	return s
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func NewRequestID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// GetRequestID returns the request's ID, or "" outside a traced request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
