package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

// ErrCredentialNotFound is returned by Inspect when the user has no row.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialInspector exposes the raw record for admin tooling.
type CredentialInspector interface {
	Inspect(ctx context.Context, userID uint) (*domain.Credential, error)
}

// CredentialBackend is what every credential store implementation provides.
type CredentialBackend interface {
	credential.Store
	CredentialInspector
}

func resolveUserID(ctx context.Context, users UserDirectory, userID uint) (uint, error) {
	u, err := users.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return 0, credential.ErrUnknownUser
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func resolveUserName(ctx context.Context, users UserDirectory, name string) (uint, error) {
	u, err := users.FindByName(ctx, name)
	if errors.Is(err, ErrUserNotFound) {
		return 0, credential.ErrUnknownUser
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func lookupFromRecord(userID uint, rec *domain.Credential) credential.Lookup {
	if rec == nil {
		return credential.Lookup{UserID: userID}
	}
	return credential.Lookup{
		UserID:             userID,
		HasRecord:          true,
		PasswordHash:       append([]byte(nil), rec.PasswordHash...),
		FailedAttemptCount: rec.FailedAttemptCount,
	}
}
