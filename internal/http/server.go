package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"growahead/internal/cache"
	"growahead/internal/core"
	"growahead/internal/log"
	"growahead/internal/services"
	"growahead/internal/storage"
)

// Ports the server needs from the service layer.
type (
	// TransactionIngester accepts single transactions and CSV imports.
	TransactionIngester interface {
		Ingest(ctx context.Context, tx core.Transaction) (services.IngestResult, error)
		ImportCSV(ctx context.Context, r io.Reader) (services.ImportResult, error)
	}

	// Projector runs projections over the stored state.
	Projector interface {
		Checkpoints(ctx context.Context) (services.ProjectionSnapshot, error)
		Compare(ctx context.Context) (services.ProjectionSnapshot, error)
		Custom(ctx context.Context, in core.ProjectionInput) (core.Money, error)
	}

	// TransactionReader serves month listings and overviews.
	TransactionReader interface {
		ListTransactions(ctx context.Context, year, month int) ([]storage.StoredTransaction, error)
		ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	}

	// ProfileStore reads and updates the selected risk profile.
	ProfileStore interface {
		GetRiskProfile(ctx context.Context) (core.RiskProfile, error)
		SetRiskProfile(ctx context.Context, profile core.RiskProfile) error
	}

	// Pinger reports storage readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

type Server struct {
	http.Server
	ingester    TransactionIngester
	projector   Projector
	reader      TransactionReader
	profiles    ProfileStore
	pinger      Pinger
	rateLimiter *rateLimiter

	// In-process caches for month reads, invalidated on ingestion.
	overviewCache *cache.LRUCache[core.MonthOverview]
	listCache     *cache.LRUCache[[]storage.StoredTransaction]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
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
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ingester TransactionIngester, projector Projector, reader TransactionReader, profiles ProfileStore, pinger Pinger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ingester:      ingester,
		projector:     projector,
		reader:        reader,
		profiles:      profiles,
		pinger:        pinger,
		rateLimiter:   newRateLimiter(),
		overviewCache: cache.NewLRUCache[core.MonthOverview](100, 5*time.Minute),
		listCache:     cache.NewLRUCache[[]storage.StoredTransaction](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/transactions/import", s.withSecurityHeaders(s.handleImportCSV))
	mux.HandleFunc("/roundups/summary", s.withSecurityHeaders(s.handleRoundUpSummary))
	mux.HandleFunc("/projections", s.withSecurityHeaders(s.handleProjections))
	mux.HandleFunc("/projections/compare", s.withSecurityHeaders(s.handleCompareProjections))
	mux.HandleFunc("/projections/custom", s.withSecurityHeaders(s.handleCustomProjection))
	mux.HandleFunc("/profile", s.withSecurityHeaders(s.handleProfile))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit mutating requests only
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// requestIDFrom returns the request ID the middleware stored on the context,
// or "" for contexts that never went through it.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateMonth(year, month int) {
	key := s.cacheKey(year, month)
	s.overviewCache.Delete(key)
	s.listCache.Delete(key)
}

func (s *Server) getOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	key := s.cacheKey(year, month)

	if data, found := s.overviewCache.Get(key); found {
		slog.DebugContext(ctx, "Overview cache hit", "year", year, "month", month)
		return data, nil
	}

	data, err := s.reader.ReadMonthOverview(ctx, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}

	s.overviewCache.Set(key, data)
	return data, nil
}

func (s *Server) getTransactions(ctx context.Context, year, month int) ([]storage.StoredTransaction, error) {
	key := s.cacheKey(year, month)

	if items, found := s.listCache.Get(key); found {
		// Return a copy to prevent external mutation
		result := make([]storage.StoredTransaction, len(items))
		copy(result, items)
		return result, nil
	}

	items, err := s.reader.ListTransactions(ctx, year, month)
	if err != nil {
		return nil, err
	}

	s.listCache.Set(key, items)
	return items, nil
}
