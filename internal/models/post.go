package models

import (
	"time"

	"gorm.io/gorm"
)

// Topic represents a forum topic that groups posts.
type Topic struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	AuthorID    uint           `gorm:"not null;index" json:"author_id"`
	Author      User           `gorm:"foreignKey:AuthorID" json:"author"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Posts       []Post         `gorm:"foreignKey:TopicID" json:"posts,omitempty"`
}

// Post represents a forum post. Replies reference their parent post through
// ParentID, forming an adjacency list; reply trees are fetched level by level
// with an explicit depth bound instead of relying on ORM cascades.
//
// Upvotes and Downvotes are denormalized counters mutated only by the vote
// engine inside the same transaction as the Vote row itself, so they never
// drift from the sum of Vote rows.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TopicID   uint           `gorm:"not null;index" json:"topic_id"`
	ParentID  *uint          `gorm:"index" json:"parent_id,omitempty"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Upvotes   int            `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int            `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Replies is populated by bounded reply-tree fetches; not a GORM relation.
	Replies []*Post `gorm:"-" json:"replies,omitempty"`
}

// Vote represents one user's standing vote on one post.
// The (PostID, VoterID) pair is unique: a user holds at most one vote per
// post. Toggling the same direction deletes the row, switching updates it.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_voter" json:"post_id"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_post_voter" json:"voter_id"`
	Upvote    bool      `gorm:"not null" json:"upvote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
