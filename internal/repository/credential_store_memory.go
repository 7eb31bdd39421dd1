package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

type InMemoryCredentialStore struct {
	mu      sync.Mutex
	users   UserDirectory
	records map[uint]domain.Credential
	now     func() time.Time
}

func NewInMemoryCredentialStore(users UserDirectory) *InMemoryCredentialStore {
	return &InMemoryCredentialStore{users: users, records: map[uint]domain.Credential{}, now: time.Now}
}

func (s *InMemoryCredentialStore) LookupByUserID(ctx context.Context, userID uint) (credential.Lookup, error) {
	id, err := resolveUserID(ctx, s.users, userID)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(id), nil
}

func (s *InMemoryCredentialStore) LookupByName(ctx context.Context, name string) (credential.Lookup, error) {
	id, err := resolveUserName(ctx, s.users, name)
	if err != nil {
		return credential.Lookup{}, err
	}
	return s.lookup(id), nil
}

func (s *InMemoryCredentialStore) lookup(userID uint) credential.Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookupFromRecord(userID, s.getLocked(userID))
}

func (s *InMemoryCredentialStore) Reconcile(ctx context.Context, req credential.Request) (credential.Outcome, error) {
	if _, err := resolveUserID(ctx, s.users, req.UserID); err != nil {
		return credential.Outcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	plan := credential.Apply(s.getLocked(req.UserID), req, s.now().UTC())
	if plan.Write {
		s.records[req.UserID] = *plan.Record
	}
	return plan.Outcome, nil
}

func (s *InMemoryCredentialStore) Destroy(ctx context.Context, _ uint, userID uint) error {
	if _, err := resolveUserID(ctx, s.users, userID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryCredentialStore) Inspect(ctx context.Context, userID uint) (*domain.Credential, error) {
	if _, err := resolveUserID(ctx, s.users, userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getLocked(userID)
	if rec == nil {
		return nil, ErrCredentialNotFound
	}
	return rec, nil
}

// getLocked returns a copy of the stored record, or nil.
func (s *InMemoryCredentialStore) getLocked(userID uint) *domain.Credential {
	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	rec.PasswordHash = append([]byte{}, rec.PasswordHash...)
	if rec.LastLoginAt != nil {
		t := *rec.LastLoginAt
		rec.LastLoginAt = &t
	}
	return &rec
}
