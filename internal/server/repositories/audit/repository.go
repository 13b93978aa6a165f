package audit

import (
	"context"

	"github.com/ropbridge/ropbridge/internal/server/models"
)

type Repository interface {
	Log(ctx context.Context, req *models.IncomingRequest) error
}
