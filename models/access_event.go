package models

import "time"

// AccessTextMaxLen is the size of the Path, UserAgent and Referer columns.
const AccessTextMaxLen = 500

// AccessEvent is one recorded inbound request. Rows are append-only.
type AccessEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Path       string    `gorm:"size:500;not null;index" json:"path"`
	Method     string    `gorm:"size:10;not null" json:"method"`
	ClientIP   string    `gorm:"size:45;not null;index" json:"client_ip"`
	UserAgent  *string   `gorm:"size:500" json:"user_agent"`
	Referer    *string   `gorm:"size:500" json:"referer"`
	UserID     *uint     `json:"user_id"`
	StatusCode int       `gorm:"not null" json:"status_code"`
	DurationMs int64     `gorm:"not null" json:"duration_ms"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
}
