// Package refreshtokens declares the server-side repository contract for the
// refresh-token ledger.
package refreshtokens

import (
	"context"
	"time"

	"github.com/ropbridge/ropbridge/internal/server/models"
)

// Repository defines the ledger operations. Rows are append-then-mark: a
// token row is inserted once and later stamped revoked, never deleted.
type Repository interface {
	// Create inserts a new ledger row for the token.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a ledger row by its opaque token string and returns it
	// with full revocation metadata. Returns common.ErrorNotFound when the
	// token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Consume marks the token revoked-by-rotation and records its successor,
	// but only if the row is still unrevoked. If another transaction got
	// there first the update matches zero rows and Consume returns
	// common.ErrTokenConsumed.
	Consume(ctx context.Context, token string, replacedBy string, at time.Time) error

	// RevokeAllActive stamps every unrevoked token of the user revoked at
	// the given instant and reports how many rows were hit. ReplacedBy is
	// left empty: a bulk revocation has no successor.
	RevokeAllActive(ctx context.Context, userID string, at time.Time) (int64, error)
}
