package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"zenbank/internal/accounts"
	"zenbank/internal/log"
	"zenbank/internal/middleware/ratelimit"
	"zenbank/internal/middleware/security"
	"zenbank/internal/middleware/trace"
	"zenbank/internal/services"
	"zenbank/internal/session"
)

// Deps are the services the API is built on. Ready may be nil, in which
// case readiness only reflects the process.
type Deps struct {
	Auth        *services.AuthService
	Accounts    *services.AccountService
	Suggestions *services.SuggestionService
	Sessions    *session.Manager
	Ready       accounts.Pinger
	Logger      *log.Logger
}

type Options struct {
	RateLimitRPM     int
	AuthRateLimitRPM int
	MaxBodyBytes     int64
}

// appMetrics are counters exposed on /metrics.
type appMetrics struct {
	uptime       time.Time
	signups      atomic.Int64
	logins       atomic.Int64
	failedLogins atomic.Int64
	deposits     atomic.Int64
	withdrawals  atomic.Int64
	wrongPINs    atomic.Int64
	suggestions  atomic.Int64
}

type Server struct {
	http.Server
	auth        *services.AuthService
	accounts    *services.AccountService
	suggestions *services.SuggestionService
	sessions    *session.Manager
	ready       accounts.Pinger
	logger      *log.Logger
	maxBody     int64

	rateLimiter     *ratelimit.Limiter
	authLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	detector := security.NewDetector()

	s := &Server{
		auth:            deps.Auth,
		accounts:        deps.Accounts,
		suggestions:     deps.Suggestions,
		sessions:        deps.Sessions,
		ready:           deps.Ready,
		logger:          logger.WithComponent(log.ComponentHTTP),
		maxBody:         opts.MaxBodyBytes,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		authLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimitRPM}),
		detector:        detector,
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:      &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	authLimit := s.authLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)
	mux.Handle("POST /api/signup", authLimit(http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /api/login", authLimit(http.HandlerFunc(s.handleLogin)))

	mux.HandleFunc("POST /api/logout", s.requireSession(peek, s.handleLogout))
	mux.HandleFunc("GET /api/session", s.requireSession(peek, s.handleSession))
	mux.HandleFunc("POST /api/session/activity", s.requireSession(touch, s.handleActivity))

	mux.HandleFunc("GET /api/account", s.requireSession(touch, s.handleAccount))
	mux.HandleFunc("POST /api/account/balance", s.requireSession(touch, s.handleRevealBalance))
	mux.HandleFunc("PUT /api/account/profile", s.requireSession(touch, s.handleUpdateProfile))
	mux.HandleFunc("POST /api/account/pin", s.requireSession(touch, s.handleChangePIN))

	mux.HandleFunc("GET /api/transactions", s.requireSession(touch, s.handleHistory))
	mux.HandleFunc("POST /api/transactions/deposit", s.requireSession(touch, s.handleDeposit))
	mux.HandleFunc("POST /api/transactions/withdraw", s.requireSession(touch, s.handleWithdraw))

	mux.HandleFunc("POST /api/suggestions", s.requireSession(touch, s.handleSuggest))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, CodeNotFound, "no such endpoint").Write(w)
	})

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.screen(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// screen logs requests that look like probes. They are still served.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops accepting requests and the limiter cleanup goroutines.
// Sessions belong to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.authLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
