package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCredentialStore keeps credentials next to the users table. Reconcile
// locks the user row for the duration of the transaction on PostgreSQL.
type GormCredentialStore struct {
	db    *gorm.DB
	users *GormUserRepository
	now   func() time.Time
}

func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db, users: NewUserRepository(db), now: time.Now}
}

func (s *GormCredentialStore) LookupByUserID(ctx context.Context, userID uint) (credential.Lookup, error) {
	id, err := resolveUserID(ctx, s.users, userID)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(ctx, id)
}

func (s *GormCredentialStore) LookupByName(ctx context.Context, name string) (credential.Lookup, error) {
	id, err := resolveUserName(ctx, s.users, name)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(ctx, id)
}

func (s *GormCredentialStore) lookup(ctx context.Context, userID uint) (credential.Lookup, error) {
	rec, err := findCredential(s.db.WithContext(ctx), userID)
	if err != nil {
		return credential.Lookup{}, err
	}
	return lookupFromRecord(userID, rec), nil
}

func (s *GormCredentialStore) Reconcile(ctx context.Context, req credential.Request) (credential.Outcome, error) {
	var outcome credential.Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, req.UserID); err != nil {
			return err
		}
		existing, err := findCredential(tx, req.UserID)
		if err != nil {
			return err
		}
		plan := credential.Apply(existing, req, s.now().UTC())
		outcome = plan.Outcome
		if !plan.Write {
			return nil
		}
		if existing == nil {
			return tx.Omit(clause.Associations).Create(plan.Record).Error
		}
		return tx.Omit(clause.Associations).Save(plan.Record).Error
	})
	if err != nil {
		return credential.Outcome{}, err
	}
	return outcome, nil
}

func (s *GormCredentialStore) Destroy(ctx context.Context, _ uint, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&domain.Credential{}).Error
	})
}

func (s *GormCredentialStore) Inspect(ctx context.Context, userID uint) (*domain.Credential, error) {
	if _, err := resolveUserID(ctx, s.users, userID); err != nil {
		return nil, err
	}
	rec, err := findCredential(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrCredentialNotFound
	}
	return rec, nil
}

// lockUser serialises reconciliations per user. sqlite has no row locks and
// relies on its single writer instead.
func lockUser(tx *gorm.DB, userID uint) error {
	q := tx.Model(&domain.User{}).Select("id")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var u domain.User
	if err := q.Where("id = ?", userID).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return credential.ErrUnknownUser
		}
		return err
	}
	return nil
}

func findCredential(db *gorm.DB, userID uint) (*domain.Credential, error) {
	var rec domain.Credential
	err := db.Where("user_id = ?", userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
