// Package models holds the persistent and wire-facing data structures shared
// by repositories and services.
package models

import "time"

// User is a principal known to the credential store. Roles are claim values
// embedded into issued access tokens.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}
