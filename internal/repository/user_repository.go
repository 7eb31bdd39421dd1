package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserDirectory resolves users for the credential stores.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByName(ctx context.Context, name string) (*domain.User, error)
}

type UserRepository interface {
	UserDirectory
	Create(ctx context.Context, user *domain.User) error
	ListPaged(ctx context.Context, req PageRequest) (UserPage, error)
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest selects a page of users ordered by id. Out of range values fall
// back to the defaults.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	p.PageSize = min(p.PageSize, MaxPageSize)
	return p
}

type UserPage struct {
	Items      []domain.User
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *GormUserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapUserErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByName(ctx context.Context, name string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&u).Error; err != nil {
		return nil, mapUserErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func mapUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (r *GormUserRepository) ListPaged(ctx context.Context, req PageRequest) (UserPage, error) {
	req = req.normalize()
	page := UserPage{Page: req.Page, PageSize: req.PageSize}

	base := r.db.WithContext(ctx).Model(&domain.User{})
	if err := base.Count(&page.Total).Error; err != nil {
		return UserPage{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	if err := base.Order("id ASC").Offset(offset).Limit(req.PageSize).Find(&page.Items).Error; err != nil {
		return UserPage{}, err
	}
	page.TotalPages = int((page.Total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return page, nil
}
