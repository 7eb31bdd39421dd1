package domain

import "time"

// Credential is the locally stored password state of a user. A row with an
// empty PasswordHash records a failed legacy migration and is distinct from
// having no row at all.
type Credential struct {
	UserID             uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User               User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PasswordHash       []byte     `gorm:"size:64;not null" json:"-"`
	LastWriteAt        time.Time  `gorm:"not null" json:"last_write_at"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	FailedAttemptCount uint8      `gorm:"not null;default:0" json:"failed_attempt_count"`
}

func (c *Credential) HasPassword() bool {
	return c != nil && len(c.PasswordHash) > 0
}
