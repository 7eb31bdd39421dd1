package database

import (
	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Credential{},
		&domain.LegacyCredential{},
	)
}
