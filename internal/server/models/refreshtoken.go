package models

import "time"

// RevokedToken records a refresh token id (jti) that may no longer be
// exchanged. Rows past ExpiresAt are useless and may be purged.
type RevokedToken struct {
	TokenID   string
	ExpiresAt time.Time
	RevokedAt time.Time
}
