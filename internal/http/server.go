// Package http is the REST surface of the cash book. Routing uses the
// standard mux with method-qualified patterns; every /api route goes
// through the logging, security-header, rate-limit and auth middleware.
package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"cashbook/internal/services"
)

// lruCache is a TTL'd LRU keyed by request shape. Read-heavy views
// (ledger, summary) are served from it; any mutation clears it.
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *lruCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

type Server struct {
	http.Server
	book        *services.BookService
	authToken   string
	rateLimiter *rateLimiter

	ledgerCache  *lruCache[services.LedgerView]
	summaryCache *lruCache[services.Summary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. authToken empty disables bearer auth.
func NewServer(addr string, book *services.BookService, authToken string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		book:             book,
		authToken:        authToken,
		rateLimiter:      newRateLimiter(),
		ledgerCache:      newLRUCache[services.LedgerView](100, time.Minute),
		summaryCache:     newLRUCache[services.Summary](10, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := s.withMiddleware

	mux.HandleFunc("GET /api/entries", api(s.handleListEntries))
	mux.HandleFunc("POST /api/entries", api(s.handleCreateEntry))
	mux.HandleFunc("GET /api/entries/{id}", api(s.handleGetEntry))
	mux.HandleFunc("PUT /api/entries/{id}", api(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/entries/{id}", api(s.handleDeleteEntry))
	mux.HandleFunc("GET /api/ledger", api(s.handleLedger))

	mux.HandleFunc("GET /api/members", api(s.handleListMembers))
	mux.HandleFunc("POST /api/members", api(s.handleCreateMember))
	mux.HandleFunc("GET /api/members/columns", api(s.handleInstallmentColumns))
	mux.HandleFunc("GET /api/members/{id}", api(s.handleGetMember))
	mux.HandleFunc("PUT /api/members/{id}", api(s.handleUpdateMember))
	mux.HandleFunc("DELETE /api/members/{id}", api(s.handleDeleteMember))
	mux.HandleFunc("POST /api/members/{id}/installments", api(s.handleAddInstallment))
	mux.HandleFunc("PUT /api/members/{id}/installments/{idx}", api(s.handlePutInstallment))
	mux.HandleFunc("DELETE /api/members/{id}/installments/{idx}", api(s.handleRemoveInstallment))

	mux.HandleFunc("GET /api/products", api(s.handleListProducts))
	mux.HandleFunc("POST /api/products", api(s.handleCreateProduct))
	mux.HandleFunc("GET /api/products/{id}", api(s.handleGetProduct))
	mux.HandleFunc("PUT /api/products/{id}", api(s.handleUpdateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", api(s.handleDeleteProduct))
	mux.HandleFunc("POST /api/products/{id}/logs", api(s.handleAppendLog))
	mux.HandleFunc("PATCH /api/products/{id}/logs/{seq}", api(s.handleUpdateLog))
	mux.HandleFunc("DELETE /api/products/{id}/logs/{seq}", api(s.handleDeleteLog))

	mux.HandleFunc("GET /api/categories", api(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", api(s.handleAddCategory))
	mux.HandleFunc("GET /api/fields", api(s.handleListFields))
	mux.HandleFunc("POST /api/fields", api(s.handleAddField))

	mux.HandleFunc("GET /api/summary", api(s.handleSummary))

	mux.HandleFunc("GET /api/export/entries.pdf", api(s.handleEntriesPDF))
	mux.HandleFunc("GET /api/export/entries.xlsx", api(s.handleEntriesXLSX))
	mux.HandleFunc("GET /api/export/members.pdf", api(s.handleMembersPDF))
	mux.HandleFunc("GET /api/export/members.xlsx", api(s.handleMembersXLSX))
	mux.HandleFunc("GET /api/export/products/{id}/pdf", api(s.handleProductPDF))
	mux.HandleFunc("GET /api/export/products/{id}/xlsx", api(s.handleProductXLSX))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ledgerCleaned := s.ledgerCache.CleanExpired()
			summaryCleaned := s.summaryCache.CleanExpired()
			if ledgerCleaned > 0 || summaryCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"ledger_entries_removed", ledgerCleaned,
					"summary_entries_removed", summaryCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateViews drops every cached view. Called after any mutation.
func (s *Server) invalidateViews() {
	s.ledgerCache.Clear()
	s.summaryCache.Clear()
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds request logging, security headers, rate limiting on
// mutations and optional bearer auth.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

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
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if s.authToken != "" && !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.authToken)) == 1
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
