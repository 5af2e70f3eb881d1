package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"savvy/internal/cache"
	"savvy/internal/dashboard"
	"savvy/internal/log"
	"savvy/internal/middleware/ratelimit"
	"savvy/internal/middleware/security"
	"savvy/internal/middleware/trace"
	"savvy/internal/session"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Dashboard *dashboard.Service
	Sessions  session.Provider
	Logger    *log.Logger

	// Ready reports whether the record store is reachable. Nil means there
	// is nothing to check.
	Ready func(ctx context.Context) error

	RateLimit ratelimit.Config
	Headers   security.HeadersConfig

	// Caches, when set, sweeps idle rate limit clients.
	Caches *cache.Manager
}

// Server is the dashboard's JSON API.
type Server struct {
	http.Server

	dashboard *dashboard.Service
	sessions  session.Provider
	ready     func(ctx context.Context) error
	logger    *log.Logger
	events    *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics *appMetrics
}

type appMetrics struct {
	transactionsCreated atomic.Int64
	transactionsDeleted atomic.Int64
	goalsSaved          atomic.Int64
	goalsDeleted        atomic.Int64
	storeFailures       atomic.Int64
	uptime              time.Time
}

// sessionMiddleware is implemented by providers that read credentials from
// the request, such as the JWT provider.
type sessionMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	rlConfig := deps.RateLimit
	if rlConfig.RequestsPerMinute <= 0 {
		rlConfig = ratelimit.DefaultConfig()
	}
	headers := deps.Headers
	if headers.CSP == "" {
		origins := headers.AllowedOrigins
		headers = security.DefaultHeadersConfig()
		headers.AllowedOrigins = origins
	}

	s := &Server{
		dashboard:        deps.Dashboard,
		sessions:         deps.Sessions,
		ready:            deps.Ready,
		logger:           logger,
		events:           log.NewStructuredLogger(logger.WithComponent(log.ComponentDashboard)),
		rateLimiter:      ratelimit.NewLimiter(rlConfig),
		securityDetector: security.NewDetector(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	if deps.Caches != nil {
		deps.Caches.Register("rate_limit_clients", s.rateLimiter)
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session/sign-out", s.handleSignOut)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/sort", s.handleToggleSort)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals/{id}/form", s.handleGoalForm)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)

	mux.HandleFunc("GET /api/spending/monthly", s.handleMonthlySpending)
	mux.HandleFunc("GET /api/nudges", s.handleNudges)
	mux.HandleFunc("GET /api/profile", s.handleProfile)

	var handler http.Handler = mux
	if sm, ok := deps.Sessions.(sessionMiddleware); ok {
		handler = sm.Middleware(handler)
	}
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").
		TriggerErrorNotification("Slow down", "Too many requests, please try again later").
		Write(w)
}
