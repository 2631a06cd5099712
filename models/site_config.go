package models

import "time"

// SiteConfig stores one owner-editable site setting.
type SiteConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:config_key;size:100;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// All lists every model for migration.
func All() []interface{} {
	return []interface{}{&User{}, &Article{}, &AccessEvent{}, &SiteConfig{}}
}
