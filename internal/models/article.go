package models

import (
	"time"

	"gorm.io/gorm"
)

// Article is a health/news article ingested from an external feed.
// SourceHash is a content fingerprint (sha256 of source URL + title) with a
// unique index; ingestion relies on it to drop duplicates at the database
// level regardless of how many times a feed is replayed.
type Article struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Summary     string         `gorm:"type:text" json:"summary"`
	Content     string         `gorm:"type:text" json:"content"`
	SourceName  string         `json:"source_name"`
	SourceURL   string         `gorm:"not null" json:"source_url"`
	SourceHash  string         `gorm:"uniqueIndex;size:64;not null" json:"-"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
