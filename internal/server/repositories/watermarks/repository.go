// Package watermarks declares the repository contract for per-principal
// revocation watermarks.
package watermarks

import (
	"context"
	"time"

	"github.com/ropbridge/ropbridge/internal/server/models"
)

// Repository stores one watermark row per user. The watermark only ever moves
// forward in time.
type Repository interface {
	// Get returns the user's watermark, or common.ErrorNotFound when the
	// user has never been mass-revoked.
	Get(ctx context.Context, userID string) (*models.TokenWatermark, error)

	// Raise moves the user's watermark to at, creating the row if needed.
	// A raise below the current watermark is a no-op: the stored value is
	// monotonic.
	Raise(ctx context.Context, userID string, at time.Time) error
}
