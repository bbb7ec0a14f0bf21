// Package http exposes the expense API over JSON.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/cache"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

// Config carries the server's tunables.
type Config struct {
	Addr           string
	JWTSecret      []byte
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	http.Server

	service      *services.ExpenseService
	verifier     *auth.Verifier
	logger       *log.Logger
	limiter      *clientLimiter
	summaryCache cache.Cache[services.Summary]
	cacheManager *cache.Manager
	shutdownOnce sync.Once

	// injectable clock, "today" drives validation and summary ranges
	now func() time.Time
}

// NewServer wires routes, middleware and the summary cache.
func NewServer(cfg Config, service *services.ExpenseService, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	summaryCache := cache.NewLRUCache[services.Summary](500, 5*time.Minute)
	manager := cache.NewManager()
	manager.Register(summaryCache)
	manager.StartCleanup(10 * time.Minute)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		service:      service,
		verifier:     auth.NewVerifier(cfg.JWTSecret),
		logger:       logger.WithComponent(log.ComponentHTTP),
		limiter:      newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		summaryCache: summaryCache,
		cacheManager: manager,
		now:          time.Now,
	}

	mux.HandleFunc("GET /healthz", s.public(s.handleHealth))

	mux.HandleFunc("GET /api/categories", s.public(s.handleListCategories))

	mux.HandleFunc("POST /api/expenses", s.protected(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/{id}", s.protected(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.protected(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/summary", s.protected(s.handleSummary))

	return s
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
