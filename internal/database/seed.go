package database

import (
	"errors"
	"strings"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"gorm.io/gorm"
)

var ErrEmptyUserName = errors.New("user name is required")

type UserSeedReport struct {
	Users   []domain.User `json:"users"`
	Created int           `json:"created"`
	Noop    bool          `json:"noop"`
}

// SeedUsers makes sure a user row exists for every name. Existing rows are
// left untouched.
func SeedUsers(db *gorm.DB, names []string) (*UserSeedReport, error) {
	report := &UserSeedReport{Users: make([]domain.User, 0, len(names))}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range names {
			name := strings.TrimSpace(raw)
			if name == "" {
				return ErrEmptyUserName
			}
			u := domain.User{Name: name}
			res := tx.Where("name = ?", name).FirstOrCreate(&u)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				report.Created++
			}
			report.Users = append(report.Users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Noop = report.Created == 0
	return report, nil
}
