package models

import "time"

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Article is a blog post. Timestamps are written by the caller's clock, not by gorm.
// PublishedAt is set on the first transition to published and never cleared afterwards.
type Article struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Content     string        `gorm:"type:text;not null" json:"content"`
	Summary     string        `gorm:"size:500;not null;default:''" json:"summary"`
	Status      ArticleStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	AuthorID    uint          `gorm:"index;not null" json:"author_id"`
	ViewCount   int64         `gorm:"not null;default:0" json:"view_count"`
	CreatedAt   time.Time     `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime:false" json:"updated_at"`
	PublishedAt *time.Time    `gorm:"index" json:"published_at"`
}
