// Package common defines shared constants and sentinel errors used across
// ropbridge layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrTokenReplayed marks reuse of an already-consumed or revoked refresh
	// token. It triggers mass revocation of the principal's token family and
	// must never be distinguishable from a plain unauthorized at the boundary.
	ErrTokenReplayed = errors.New("refresh token replayed")

	// ErrTokenConsumed is returned by the ledger when a conditional consume
	// touched zero rows because a concurrent rotation won the race.
	ErrTokenConsumed = errors.New("refresh token already consumed")

	// ERP integration errors.
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidFirmNo = errors.New("invalid firm number")
)
