package http

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	authLimitMetrics := s.authLimiter.GetMetrics()
	sessionStats := s.sessions.Stats()
	engineStats := s.suggestions.EngineStats()

	writeMetric(w, "zenbank_uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.appMetrics.uptime).Seconds()))
	writeMetric(w, "zenbank_http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "zenbank_http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)

	writeMetric(w, "zenbank_signups_total", "counter", "Accounts created", s.appMetrics.signups.Load())
	writeMetric(w, "zenbank_logins_total", "counter", "Successful logins", s.appMetrics.logins.Load())
	writeMetric(w, "zenbank_login_failures_total", "counter", "Rejected logins", s.appMetrics.failedLogins.Load())
	writeMetric(w, "zenbank_deposits_total", "counter", "Deposits booked", s.appMetrics.deposits.Load())
	writeMetric(w, "zenbank_withdrawals_total", "counter", "Withdrawals booked", s.appMetrics.withdrawals.Load())
	writeMetric(w, "zenbank_incorrect_pin_total", "counter", "Operations refused for a wrong PIN", s.appMetrics.wrongPINs.Load())

	writeMetric(w, "zenbank_sessions_active", "gauge", "Live sessions", int64(sessionStats.Active))
	writeMetric(w, "zenbank_sessions_created_total", "counter", "Sessions created", sessionStats.Created)
	writeMetric(w, "zenbank_sessions_expired_total", "counter", "Sessions ended by the idle timeout", sessionStats.Expired)

	writeMetric(w, "zenbank_suggestions_total", "counter", "Suggestion requests served", s.appMetrics.suggestions.Load())
	fmt.Fprintf(w, "# HELP zenbank_suggestion_results_total Engine results by source\n")
	fmt.Fprintf(w, "# TYPE zenbank_suggestion_results_total counter\n")
	fmt.Fprintf(w, "zenbank_suggestion_results_total{source=\"default\"} %d\n", engineStats.Default)
	fmt.Fprintf(w, "zenbank_suggestion_results_total{source=\"model\"} %d\n", engineStats.Model)
	fmt.Fprintf(w, "zenbank_suggestion_results_total{source=\"fallback\"} %d\n\n", engineStats.Fallback)

	writeMetric(w, "zenbank_rate_limit_hits_total", "counter", "Requests rejected by the general limit", rateLimitMetrics.TotalHits)
	writeMetric(w, "zenbank_auth_rate_limit_hits_total", "counter", "Requests rejected by the login and signup limit", authLimitMetrics.TotalHits)
	writeMetric(w, "zenbank_rate_limit_clients", "gauge", "Clients tracked by the general limit", rateLimitMetrics.ClientCount)
	writeMetric(w, "zenbank_suspicious_requests_total", "counter", "Requests matching probe patterns", securityMetrics.SuspiciousRequests)
	writeMetric(w, "zenbank_invalid_ip_total", "counter", "Unparseable client addresses", securityMetrics.InvalidIPAttempts)
}

func writeMetric(w io.Writer, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
