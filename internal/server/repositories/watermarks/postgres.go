// Package watermarks provides a PostgreSQL-backed repository for revocation
// watermarks.
package watermarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.TokenWatermark, error) {
	query := `
		SELECT user_id, tokens_revoked_at, updated_at
		FROM token_watermarks
		WHERE user_id = $1
	`
	wm := &models.TokenWatermark{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wm.UserID, &wm.TokensRevokedAt, &wm.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return wm, nil
}

// Raise upserts the watermark. GREATEST keeps the stored value monotonic even
// if two revocations race with skewed timestamps.
func (r *PostgresRepository) Raise(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO token_watermarks (user_id, tokens_revoked_at, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET tokens_revoked_at = GREATEST(token_watermarks.tokens_revoked_at, EXCLUDED.tokens_revoked_at),
		    updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
