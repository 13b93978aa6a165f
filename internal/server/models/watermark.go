package models

import "time"

// TokenWatermark is the per-principal revocation watermark: any access token
// whose issued-at lies strictly before TokensRevokedAt is invalid regardless
// of its own expiry. TokensRevokedAt is kept at whole-second granularity to
// match the access token's iat resolution.
type TokenWatermark struct {
	UserID          string
	TokensRevokedAt time.Time
	UpdatedAt       time.Time
}
