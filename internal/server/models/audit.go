package models

import "time"

// IncomingRequest is one row of the request audit log, written by the audit
// middleware for mutating requests.
type IncomingRequest struct {
	ID            int64
	TransactionID string
	Endpoint      string
	Method        string
	RequestBody   string
	ClientIP      string
	UserID        *string
	CreatedAt     time.Time
}
