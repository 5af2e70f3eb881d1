package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.dashboard == nil:
		checks["dashboard"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		checks["dashboard"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["record_store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["record_store"] = "ok"
		}
	} else {
		checks["record_store"] = "remote"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.Stats().Clients,
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitStats := s.rateLimiter.Stats()
	traceStats := s.traceMiddleware.Stats()
	m := s.appMetrics

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceStats.Requests)
	writeMetric(w, "http_client_errors_total", "counter", "Total number of 4xx responses", traceStats.ClientErrors)
	writeMetric(w, "http_server_errors_total", "counter", "Total number of 5xx responses", traceStats.ServerErrors)
	writeMetric(w, "http_response_time_microseconds", "gauge", "Mean response time", traceStats.MeanMicros)
	writeMetric(w, "transactions_created_total", "counter", "Transactions added", m.transactionsCreated.Load())
	writeMetric(w, "transactions_deleted_total", "counter", "Transactions deleted", m.transactionsDeleted.Load())
	writeMetric(w, "goals_saved_total", "counter", "Savings goals created or updated", m.goalsSaved.Load())
	writeMetric(w, "goals_deleted_total", "counter", "Savings goals deleted", m.goalsDeleted.Load())
	writeMetric(w, "record_store_failures_total", "counter", "Record store calls that failed", m.storeFailures.Load())
	writeMetric(w, "rate_limit_rejections_total", "counter", "Mutations rejected by the rate limiter", rateLimitStats.Rejected)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", int64(rateLimitStats.Clients))
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "blocked_requests_total", "counter", "Total requests blocked", securityMetrics.BlockedRequests)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(m.uptime).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
