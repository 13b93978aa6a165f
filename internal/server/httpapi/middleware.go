package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/netx"
	"github.com/ropbridge/ropbridge/internal/server/auth"
	"github.com/ropbridge/ropbridge/internal/server/models"
)

type ctxKey int

const (
	ctxClaimsKey ctxKey = iota
	ctxAuditKey
)

// auditInfo travels down the middleware chain as a pointer so the inner auth
// middleware can report the principal back to the outer audit middleware.
type auditInfo struct {
	transactionID string
	userID        *string
}

// ClaimsFromContext returns the verified claims of the current request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey).(*auth.Claims)
	return claims, ok
}

// TransactionIDFromContext returns the audit transaction id of the request.
func TransactionIDFromContext(ctx context.Context) (string, bool) {
	info, ok := ctx.Value(ctxAuditKey).(*auditInfo)
	if !ok {
		return "", false
	}
	return info.transactionID, true
}

// requireAuth verifies the bearer token and stores the claims in the request
// context. Every verification failure looks the same to the caller.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get(common.AuthorizationHeaderName)
		parts := strings.Fields(authz)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := s.sessions.Validate(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, common.ErrorInternal) {
				writeError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), ctxClaimsKey, claims)
		if info, ok := ctx.Value(ctxAuditKey).(*auditInfo); ok {
			id := claims.UserID
			info.userID = &id
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireFirm insists on the x-firm-no header and pins it to the firm this
// server instance is configured for.
func (s *Server) requireFirm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firmNo := r.Header.Get(common.FirmHeaderName)
		if firmNo == "" {
			writeError(w, http.StatusBadRequest, "firm_number_required")
			return
		}
		if firmNo != s.firmNo {
			writeError(w, http.StatusBadRequest, "unknown_firm_number")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auditMiddleware tags every response with a transaction id and records
// mutating requests in the incoming-request log. Audit failures never fail
// the request.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &auditInfo{transactionID: uuid.New().String()}
		w.Header().Set(common.TransactionIDHeaderName, info.transactionID)

		ctx := context.WithValue(r.Context(), ctxAuditKey, info)
		r = r.WithContext(ctx)

		mutating := r.Method == http.MethodPost || r.Method == http.MethodPut

		var body []byte
		if mutating && r.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(r.Body, 1<<20))
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		next.ServeHTTP(w, r)

		if !mutating {
			return
		}

		record := &models.IncomingRequest{
			TransactionID: info.transactionID,
			Endpoint:      r.URL.Path,
			Method:        r.Method,
			RequestBody:   redactBody(r.URL.Path, string(body)),
			ClientIP:      netx.ClientIP(r.RemoteAddr),
			UserID:        info.userID,
		}
		if err := s.audit.Log(ctx, record); err != nil {
			s.logger.Error(ctx, "audit log write failed",
				"transaction_id", info.transactionID, "error", err)
		}
	})
}

// redactBody keeps credentials and token material out of the audit table.
func redactBody(path, body string) string {
	if strings.HasPrefix(path, "/api/v1/auth/") {
		return ""
	}
	return body
}
