package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

// InMemoryUserDirectory backs the memory credential store and tests.
type InMemoryUserDirectory struct {
	mu     sync.RWMutex
	byID   map[uint]domain.User
	byName map[string]uint
	nextID uint
}

func NewInMemoryUserDirectory() *InMemoryUserDirectory {
	return &InMemoryUserDirectory{byID: map[uint]domain.User{}, byName: map[string]uint{}}
}

// Add registers a user. A zero id allocates the next free one.
func (d *InMemoryUserDirectory) Add(id uint, name string) domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == 0 {
		d.nextID++
		for d.byID[d.nextID].ID != 0 {
			d.nextID++
		}
		id = d.nextID
	}
	now := time.Now().UTC()
	u := domain.User{ID: id, Name: strings.TrimSpace(name), CreatedAt: now, UpdatedAt: now}
	d.byID[id] = u
	d.byName[u.Name] = id
	return u
}

func (d *InMemoryUserDirectory) Create(_ context.Context, user *domain.User) error {
	*user = d.Add(user.ID, user.Name)
	return nil
}

func (d *InMemoryUserDirectory) FindByID(_ context.Context, id uint) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *InMemoryUserDirectory) FindByName(_ context.Context, name string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := d.byID[id]
	return &u, nil
}
