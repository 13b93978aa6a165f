// Package audit provides a PostgreSQL-backed repository for the incoming
// request log.
package audit

import (
	"context"
	"fmt"

	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Log(ctx context.Context, req *models.IncomingRequest) error {
	query := `
		INSERT INTO incoming_request_log (transaction_id, endpoint, method, request_body, client_ip, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		req.TransactionID, req.Endpoint, req.Method, req.RequestBody, req.ClientIP, req.UserID); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}
