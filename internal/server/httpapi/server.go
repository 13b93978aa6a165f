// Package httpapi exposes the authentication, stock and netting operations
// over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/auth"
	"github.com/ropbridge/ropbridge/internal/server/models"
	"github.com/ropbridge/ropbridge/internal/server/repositories/audit"
	"github.com/ropbridge/ropbridge/internal/server/services"
)

// Authenticator verifies login credentials and mints the first pair.
type Authenticator interface {
	Login(ctx context.Context, username, password, clientAddr string) (*services.TokenPair, error)
}

// SessionManager rotates, revokes and validates issued tokens.
type SessionManager interface {
	Rotate(ctx context.Context, accessToken, refreshValue, clientAddr string) (*services.TokenPair, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
	Validate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// StockReader answers point queries about one ERP item.
type StockReader interface {
	OnHand(ctx context.Context, itemRef int) (float64, error)
	OpenPO(ctx context.Context, itemRef int) (float64, error)
}

// NettingRunner executes one MRP netting pass.
type NettingRunner interface {
	Process(ctx context.Context, items []models.ReorderItem) (*models.MRPSummary, error)
}

// Server wires handlers and middleware around an http.Server.
type Server struct {
	srv      *http.Server
	users    Authenticator
	sessions SessionManager
	stock    StockReader
	mrp      NettingRunner
	audit    audit.Repository
	logger   logging.Logger
	firmNo   string
}

func New(users Authenticator, sessions SessionManager, stock StockReader, mrp NettingRunner,
	auditRepo audit.Repository, logger logging.Logger, firmNo string) *Server {
	s := &Server{
		users:    users,
		sessions: sessions,
		stock:    stock,
		mrp:      mrp,
		audit:    auditRepo,
		logger:   logger,
		firmNo:   firmNo,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)
	mux.Handle("POST /api/v1/auth/revoke", s.requireAuth(http.HandlerFunc(s.handleRevoke)))
	mux.Handle("GET /api/v1/stock/status/{itemRef}",
		s.requireAuth(s.requireFirm(http.HandlerFunc(s.handleStockStatus))))
	mux.Handle("POST /api/v1/mrp/calculate",
		s.requireAuth(s.requireFirm(http.HandlerFunc(s.handleMRPCalculate))))

	s.srv = &http.Server{
		Handler:      s.auditMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info(r.Context(), "request handled",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
