// Package http is the view layer: server-rendered pages over the
// session manager and the remote API client. Handlers catch errors at
// the boundary and render them inline; nothing here is fatal to the
// process.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripexpense/internal/auth"
	"tripexpense/internal/cache"
	"tripexpense/internal/core"
	applog "tripexpense/internal/log"
	"tripexpense/internal/session"
	appweb "tripexpense/web"
)

// ExpenseAPI is the slice of the remote client the view layer uses
// directly, always scoped by the active trip id.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context, tripID string) ([]core.Expense, error)
	CreateExpense(ctx context.Context, tripID string, in core.ExpenseInput) (core.Expense, error)
	DeleteTrip(ctx context.Context, tripID string) (int, error)
	ExportCSV(ctx context.Context, tripID string) ([]byte, error)
}

// ChartRenderer draws the summary chart.
type ChartRenderer interface {
	CategoryBreakdown(ov core.TripOverview) ([]byte, error)
}

type Server struct {
	http.Server
	templates *template.Template
	manager   *session.Manager
	api       ExpenseAPI
	sessions  auth.Provider
	charts    ChartRenderer
	log       *applog.Logger

	// Expense lists keyed by trip id; invalidated on writes.
	expenseCache *cache.LRU[[]core.Expense]

	limiter          *rateLimiter
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, mgr *session.Manager, api ExpenseAPI, sessions auth.Provider, charts ChartRenderer, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		manager:          mgr,
		api:              api,
		sessions:         sessions,
		charts:           charts,
		log:              logger,
		expenseCache:     cache.NewLRU[[]core.Expense](100, 2*time.Minute),
		limiter:          newRateLimiter(),
		stopCacheCleanup: make(chan struct{}),
	}
	go s.startCacheCleanup()

	s.templates = template.Must(template.New("").Funcs(template.FuncMap{
		"dollars": func(m core.Money) string { return m.Dollars() },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html"))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/", s.with(s.handleSummary))
	mux.HandleFunc("/trips", s.with(s.handleAddTrip))
	mux.HandleFunc("/trips/select", s.with(s.handleSelectTrip))
	mux.HandleFunc("/trips/delete", s.with(s.handleDeleteTrip))
	mux.HandleFunc("/expenses/new", s.with(s.handleExpenseForm))
	mux.HandleFunc("/expenses", s.with(s.handleCreateExpense))
	mux.HandleFunc("/export", s.with(s.handleExportCSV))
	mux.HandleFunc("/chart.png", s.with(s.handleChart))
	mux.HandleFunc("/settings", s.with(s.handleSettings))
	mux.HandleFunc("/signout", s.with(s.handleSignOut))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	return s
}

// with wraps a handler with request logging, security headers, and
// POST rate limiting.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		clientIP := clientIP(r)

		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		if r.Method == http.MethodPost && !s.limiter.allow(clientIP) {
			s.log.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self'; style-src 'self'")

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		s.log.InfoContext(r.Context(), "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.status,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.expenseCache.CleanExpired(); n > 0 {
				s.log.Debug("Cache cleanup completed", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops background cleanup before shutting the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// rateLimiter allows up to 60 requests per client per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, client := range rl.clients {
				if client.lastRequest.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
