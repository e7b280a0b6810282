package models

import "time"

// PasswordResetToken is a persisted, expiring, single-use reset token.
// Tokens live in the database (not process memory) so they survive restarts
// and work across multiple instances.
type PasswordResetToken struct {
	Token     string     `gorm:"primaryKey;size:36" json:"token"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token can still redeem a password reset.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
