package alerts

import (
	"context"

	"github.com/ropbridge/ropbridge/internal/logging"
)

// LogAlerter is the fallback used when no message broker is configured:
// events land in the server log only.
type LogAlerter struct {
	logger logging.Logger
}

func NewLogAlerter(logger logging.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Notify(ctx context.Context, event Event) error {
	a.logger.Warn(ctx, "security alert",
		"kind", event.Kind,
		"user_id", event.UserID,
		"token_id", event.TokenID,
		"client_ip", event.ClientIP,
		"revoked", event.Revoked,
	)
	return nil
}
