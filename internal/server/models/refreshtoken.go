package models

import "time"

// RefreshToken is one row of the refresh-token ledger. Rows are created at
// issuance or rotation and only ever mutated to set RevokedAt/ReplacedBy;
// they are never deleted, so the ledger doubles as a theft-forensics trail.
//
// ReplacedBy is set iff the row was consumed through rotation; bulk
// revocation leaves it nil.
type RefreshToken struct {
	ID          string
	UserID      string
	Token       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	ReplacedBy  *string
	CreatedByIP string
}

// Active reports whether the token can still be exchanged at the given
// instant: never revoked and not past its expiry.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Expired reports whether the token's TTL has lapsed at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
