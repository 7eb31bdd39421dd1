package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GormVerifier checks passwords against bcrypt hashes exported from the
// previous system. A row stops answering once it has been migrated.
type GormVerifier struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormVerifier(db *gorm.DB) *GormVerifier {
	return &GormVerifier{db: db, now: time.Now}
}

func (v *GormVerifier) Verify(ctx context.Context, userID uint, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	var rec domain.LegacyCredential
	err := v.db.WithContext(ctx).
		Where("user_id = ? AND migrated_at IS NULL", userID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load legacy credential: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("legacy hash for user %d: %w", userID, err)
	}
}

func (v *GormVerifier) OnMigrated(ctx context.Context, userID uint) error {
	now := v.now().UTC()
	return v.db.WithContext(ctx).
		Model(&domain.LegacyCredential{}).
		Where("user_id = ? AND migrated_at IS NULL", userID).
		Update("migrated_at", &now).Error
}
