// Package services contains server-side business logic. This file implements
// TokenService: issuing access/refresh token pairs, rotating refresh tokens
// with theft detection, mass revocation, and access-token validation against
// the per-principal revocation watermark.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/alerts"
	"github.com/ropbridge/ropbridge/internal/server/auth"
	"github.com/ropbridge/ropbridge/internal/server/clock"
	"github.com/ropbridge/ropbridge/internal/server/config"
	"github.com/ropbridge/ropbridge/internal/server/models"
	"github.com/ropbridge/ropbridge/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-retry"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// refreshTokenBytes gives 256 bits of entropy per opaque token value.
const refreshTokenBytes = 32

// lookupRetryBackoff spaces the single retry allowed on transient ledger
// reads. Writes are never silently retried.
const lookupRetryBackoff = 50 * time.Millisecond

// TokenService owns the refresh-token ledger and the revocation watermark.
//
// The ledger row for a refresh token moves through exactly one transition:
// active to consumed (rotation stamped it with a successor) or active to
// revoked (logout or theft response). Both end states are terminal. Replay of
// a dead token is treated as theft: the whole active family of the principal
// is revoked and the watermark rises, cutting off every outstanding access
// token as well.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	tokens                       *auth.Manager
	alerter                      alerts.Alerter
	logger                       logging.Logger
	clock                        clock.Clock
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	storeTimeout                 time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	alerter alerts.Alerter, logger logging.Logger, clk clock.Clock) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		tokens:                       auth.NewManager([]byte(cfg.SecretKey), cfg.Issuer, cfg.Audience),
		alerter:                      alerter,
		logger:                       logger,
		clock:                        clk,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		storeTimeout:                 cfg.StoreTimeout,
	}
}

// storeCtx bounds one persistence round-trip. Callers that hit the deadline
// fail closed.
func (s *TokenService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Issue mints a token pair for the user. The watermark write and the ledger
// insert commit as one unit, and the access token's issued-at is derived from
// the watermark instant, so a freshly issued token can never fall below its
// own principal's watermark. If the ledger write fails no pair is disclosed.
func (s *TokenService) Issue(ctx context.Context, user *models.User, clientAddr string) (*TokenPair, error) {
	now := s.clock.Now()
	wm := now.Truncate(time.Second)

	refresh, err := common.MakeRandTokenString(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	access, err := s.tokens.Generate(user.ID, user.Roles, wm, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	txCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Watermarks(tx).Raise(ctx, user.ID, wm); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).Create(ctx, &models.RefreshToken{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Token:       refresh,
			IssuedAt:    now,
			ExpiresAt:   now.Add(s.refreshTokenValidityDuration),
			CreatedByIP: clientAddr,
		})
	}); err != nil {
		s.logger.Error(ctx, "token issuance failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    wm.Add(s.accessTokenValidityDuration),
	}, nil
}

// Rotate exchanges a refresh token for a fresh pair. The presented access
// token may be expired; its signature, issuer and audience must still hold.
//
// Reuse of an already-consumed or revoked refresh token is treated as theft:
// every active session of the principal is revoked, the watermark rises, a
// security alert goes out, and ErrTokenReplayed is returned. The HTTP layer
// collapses it into the same generic rejection as any other failure.
func (s *TokenService) Rotate(ctx context.Context, accessToken, refreshValue, clientAddr string) (*TokenPair, error) {
	claims, err := s.tokens.ParseExpired(accessToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	if claims.UserID == "" {
		return nil, common.ErrorUnauthorized
	}

	row, err := s.findToken(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "refresh token lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if row.UserID != claims.UserID {
		// token exists but belongs to someone else; reveal nothing
		return nil, common.ErrorUnauthorized
	}

	now := s.clock.Now()

	if row.RevokedAt != nil {
		s.respondToTheft(ctx, row, clientAddr)
		return nil, common.ErrTokenReplayed
	}

	if row.Expired(now) {
		// ordinary expiry is not an attack signal
		return nil, common.ErrRefreshTokenExpired
	}

	wm := now.Truncate(time.Second)

	newRefresh, err := common.MakeRandTokenString(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	access, err := s.tokens.Generate(claims.UserID, claims.Roles, wm, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	txCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	err = dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ledger := s.repomanager.RefreshTokens(tx)
		if err := ledger.Consume(ctx, refreshValue, newRefresh, now); err != nil {
			return err
		}
		if err := s.repomanager.Watermarks(tx).Raise(ctx, claims.UserID, wm); err != nil {
			return err
		}
		return ledger.Create(ctx, &models.RefreshToken{
			ID:          uuid.New().String(),
			UserID:      claims.UserID,
			Token:       newRefresh,
			IssuedAt:    now,
			ExpiresAt:   now.Add(s.refreshTokenValidityDuration),
			CreatedByIP: clientAddr,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenConsumed) {
			// lost the conditional update to a concurrent rotation; the
			// rotation transaction rolled back, so the theft response runs
			// in its own committed transaction
			s.respondToTheft(ctx, row, clientAddr)
			return nil, common.ErrTokenReplayed
		}
		s.logger.Error(ctx, "token rotation failed", "user_id", claims.UserID, "error", err)
		return nil, common.ErrorInternal
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresAt:    wm.Add(s.accessTokenValidityDuration),
	}, nil
}

// RevokeAll terminates every active session of the user: all active ledger
// rows are revoked and the watermark rises, in one transaction. Idempotent;
// returns the number of rows revoked for the audit trail.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	now := s.clock.Now()
	wm := now.Truncate(time.Second)

	txCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	var revoked int64
	if err := dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		revoked, err = s.repomanager.RefreshTokens(tx).RevokeAllActive(ctx, userID, now)
		if err != nil {
			return err
		}
		return s.repomanager.Watermarks(tx).Raise(ctx, userID, wm)
	}); err != nil {
		s.logger.Error(ctx, "revoke-all failed", "user_id", userID, "error", err)
		return 0, common.ErrorInternal
	}

	if revoked > 0 {
		if err := s.alerter.Notify(ctx, alerts.Event{
			Kind:       alerts.KindMassRevoked,
			UserID:     userID,
			Revoked:    revoked,
			OccurredAt: now,
		}); err != nil {
			s.logger.Error(ctx, "security alert delivery failed", "error", err)
		}
	}

	return revoked, nil
}

// Validate checks an access token: signature, issuer, audience, expiry, then
// one watermark read. A token issued strictly before the principal's
// watermark is rejected no matter how much lifetime it has left. A store
// failure during the watermark read rejects the token (fail closed).
func (s *TokenService) Validate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrorUnauthorized
	}
	if claims.UserID == "" || claims.IssuedAt == nil {
		return nil, common.ErrorUnauthorized
	}

	readCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	wm, err := s.repomanager.Watermarks(s.db).Get(readCtx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// principal has never been issued or revoked anything via this
			// store; nothing to compare against
			return claims, nil
		}
		s.logger.Error(ctx, "watermark read failed", "user_id", claims.UserID, "error", err)
		return nil, common.ErrorInternal
	}

	iat := claims.IssuedAt.Time.Truncate(time.Second)
	if iat.Before(wm.TokensRevokedAt.Truncate(time.Second)) {
		return nil, common.ErrorUnauthorized
	}

	return claims, nil
}

// findToken reads one ledger row, retrying once on a transient store error.
// Absence is permanent and returns immediately.
func (s *TokenService) findToken(ctx context.Context, refreshValue string) (*models.RefreshToken, error) {
	readCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	var row *models.RefreshToken
	err := retry.Do(readCtx, retry.WithMaxRetries(1, retry.NewConstant(lookupRetryBackoff)), func(ctx context.Context) error {
		var ferr error
		row, ferr = s.repomanager.RefreshTokens(s.db).Find(ctx, refreshValue)
		if ferr != nil && !errors.Is(ferr, common.ErrorNotFound) {
			return retry.RetryableError(ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// respondToTheft runs the mass-revocation response for a replayed token in
// its own transaction and emits a best-effort security alert.
func (s *TokenService) respondToTheft(ctx context.Context, row *models.RefreshToken, clientAddr string) {
	now := s.clock.Now()
	wm := now.Truncate(time.Second)

	txCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	var revoked int64
	err := dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		revoked, err = s.repomanager.RefreshTokens(tx).RevokeAllActive(ctx, row.UserID, now)
		if err != nil {
			return err
		}
		return s.repomanager.Watermarks(tx).Raise(ctx, row.UserID, wm)
	})
	if err != nil {
		s.logger.Error(ctx, "theft response failed", "user_id", row.UserID, "error", err)
		return
	}

	s.logger.Warn(ctx, "refresh token replay detected",
		"user_id", row.UserID, "token_id", row.ID, "client_ip", clientAddr, "revoked", revoked)

	if err := s.alerter.Notify(ctx, alerts.Event{
		Kind:       alerts.KindTokenReplayed,
		UserID:     row.UserID,
		TokenID:    row.ID,
		ClientIP:   clientAddr,
		Revoked:    revoked,
		OccurredAt: now,
	}); err != nil {
		s.logger.Error(ctx, "security alert delivery failed", "error", err)
	}
}
