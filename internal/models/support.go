package models

import (
	"time"

	"gorm.io/gorm"
)

// SupportStatus is the lifecycle state of a support session.
// PENDING -> ACTIVE -> CLOSED; CLOSED is terminal.
type SupportStatus string

const (
	SupportPending SupportStatus = "PENDING"
	SupportActive  SupportStatus = "ACTIVE"
	SupportClosed  SupportStatus = "CLOSED"
)

// ChatSupportSession represents one support conversation between a user and
// at most one moderator.
type ChatSupportSession struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	UserID         uint             `gorm:"not null;index:idx_support_user_status" json:"user_id"`
	User           User             `gorm:"foreignKey:UserID" json:"user"`
	ModeratorID    *uint            `gorm:"index:idx_support_mod_status" json:"moderator_id,omitempty"`
	Moderator      *User            `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	Status         SupportStatus    `gorm:"type:varchar(12);not null;default:'PENDING';index:idx_support_user_status;index:idx_support_mod_status" json:"status"`
	AdminInitiated bool             `gorm:"not null;default:false" json:"admin_initiated"`
	Messages       []SupportMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// SupportMessage is one entry in a support session's message log,
// tagged with the sender's side of the conversation.
type SupportMessage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     uint      `gorm:"not null;index" json:"session_id"`
	SenderID      uint      `gorm:"not null" json:"sender_id"`
	FromModerator bool      `gorm:"not null;default:false" json:"from_moderator"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
