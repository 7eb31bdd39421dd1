package domain

import "time"

type LegacyCredential struct {
	UserID       uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	ImportedAt   time.Time  `gorm:"not null" json:"imported_at"`
	MigratedAt   *time.Time `json:"migrated_at,omitempty"`
}
