// Package refreshtokens provides a PostgreSQL-backed repository for the
// refresh-token ledger used in the server's rotation flow.
package refreshtokens

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

// PostgresRepository implements the ledger over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new ledger row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_value, issued_at, expires_at, created_by_ip)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Token, token.IssuedAt, token.ExpiresAt, token.CreatedByIP); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// Find returns the ledger row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_value, issued_at, expires_at, revoked_at, replaced_by, created_by_ip
		FROM refresh_tokens
		WHERE token_value = $1
	`
	row := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(
		&row.ID, &row.UserID, &row.Token, &row.IssuedAt, &row.ExpiresAt,
		&row.RevokedAt, &row.ReplacedBy, &row.CreatedByIP); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row, nil
}

// Consume conditionally marks the token consumed. The WHERE clause is the
// serialization point: of two concurrent rotations of the same token only one
// matches the unrevoked row.
func (r *PostgresRepository) Consume(ctx context.Context, token string, replacedBy string, at time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by = $3
		WHERE token_value = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, token, at, replacedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrTokenConsumed
	}
	return nil
}

// RevokeAllActive stamps every unrevoked, unexpired token of the user.
func (r *PostgresRepository) RevokeAllActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
