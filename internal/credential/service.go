package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandeepkv93/secure-credential-service/internal/security"
)

var ErrEmptyPassword = security.ErrEmptyPassword

// Service is the public credential API used by the HTTP and CLI surfaces.
type Service struct {
	store  Store
	engine *Engine
}

func NewService(store Store, engine *Engine) *Service {
	return &Service{store: store, engine: engine}
}

// CreateOrUpdate stores a new hash for userID. Login bits in mode are ignored.
func (s *Service) CreateOrUpdate(ctx context.Context, actor, userID uint, password string, mode Mode) (Outcome, error) {
	if password == "" {
		return Outcome{}, ErrEmptyPassword
	}
	mode = mode.WriteBits()
	if err := mode.Validate(); err != nil {
		return Outcome{}, err
	}
	hash, err := s.engine.timedHash(ctx, password)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash password: %w", err)
	}
	return s.engine.reconcileOutcome(ctx, Request{Actor: actor, UserID: userID, Hash: hash, Mode: mode})
}

func (s *Service) SetPassword(ctx context.Context, actor, userID uint, password string) (Outcome, error) {
	return s.CreateOrUpdate(ctx, actor, userID, password, ModeUpdateOnly)
}

func (s *Service) LoginByUserID(ctx context.Context, userID uint, password string, actualLogin bool) (LoginResult, error) {
	if userID == 0 {
		return invalidUserKey(), nil
	}
	return s.engine.Login(ctx, UserIDKey(userID), password, actualLogin)
}

func (s *Service) LoginByName(ctx context.Context, name, password string, actualLogin bool) (LoginResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidUserKey(), nil
	}
	return s.engine.Login(ctx, UserNameKey(name), password, actualLogin)
}

func (s *Service) Destroy(ctx context.Context, actor, userID uint) error {
	if err := s.store.Destroy(ctx, actor, userID); err != nil {
		return fmt.Errorf("destroy credential: %w", err)
	}
	return nil
}
