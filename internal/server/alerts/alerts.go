// Package alerts publishes security events raised by the token rotation
// engine.
package alerts

import (
	"context"
	"time"
)

// Event is one security notification. Kind is a stable machine-readable
// string such as "refresh_token_replayed".
type Event struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	TokenID    string    `json:"token_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	Revoked    int64     `json:"revoked,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	KindTokenReplayed = "refresh_token_replayed"
	KindMassRevoked   = "sessions_mass_revoked"
)

// Alerter delivers security events. Delivery is best effort: the rotation
// engine never fails a request because an alert could not be sent.
type Alerter interface {
	Notify(ctx context.Context, event Event) error
}
