package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/session"
	"fintrack/internal/stats"
	appweb "fintrack/web"
)

const (
	sessionCookie   = "fintrack_session"
	shutdownTimeout = 10 * time.Second
	// recentCount is how many transactions the dashboard lists.
	recentCount = 5
)

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	Addr               string
	StatsWindowDays    int
	RateLimitPerMinute int
	CookieSecure       bool
	// Ready reports whether the backend can serve requests. Nil always
	// passes.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Manager
	logger    *log.Logger
	opts      Options

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	now          func() time.Time
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. A template parse failure is logged; pages then answer 500 while
// the JSON API keeps working.
func NewServer(opts Options, sessions *session.Manager, logger *log.Logger) *Server {
	if opts.StatsWindowDays <= 0 {
		opts.StatsWindowDays = stats.DefaultWindowDays
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		sessions:         sessions,
		logger:           logger,
		opts:             opts,
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		securityDetector: security.NewDetector(logger),
		now:              time.Now,
		started:          time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// JSON API
	mux.HandleFunc("POST /auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /auth/signout", s.handleSignOut)
	mux.Handle("GET /api/profile", s.withSession(s.handleGetProfile))
	mux.Handle("PATCH /api/profile", s.withSession(s.handleUpdateProfile))
	mux.Handle("GET /api/transactions", s.withSession(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.withSession(s.handleCreateTransaction))
	mux.Handle("POST /api/transactions/refresh", s.withSession(s.handleRefreshTransactions))
	mux.Handle("PATCH /api/transactions/{id}", s.withSession(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))
	mux.Handle("GET /api/stats", s.withSession(s.handleStats))
	mux.Handle("GET /api/stats/daily", s.withSession(s.handleDailySeries))
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	// Pages
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLoginForm)
	mux.HandleFunc("POST /logout", s.handleLogoutForm)
	mux.Handle("GET /{$}", s.withPageSession(s.handleDashboardPage))
	mux.Handle("GET /expenses", s.withPageSession(s.listPage(expensesPage)))
	mux.Handle("GET /incomes", s.withPageSession(s.listPage(incomesPage)))
	mux.Handle("POST /expenses", s.withPageSession(s.createFromPage(expensesPage)))
	mux.Handle("POST /incomes", s.withPageSession(s.createFromPage(incomesPage)))
	mux.Handle("POST /transactions/{id}/delete", s.withPageSession(s.handleDeleteFromPage))
	mux.Handle("POST /refresh", s.withPageSession(s.handleRefreshFromPage))
	mux.Handle("GET /settings", s.withPageSession(s.handleSettingsPage))
	mux.Handle("POST /settings", s.withPageSession(s.handleSettingsForm))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped", log.FieldOperation, log.OpShutdown)
	return nil
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
