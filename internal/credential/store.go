package credential

import (
	"bytes"
	"context"
	"errors"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

//go:generate mockgen -destination=gomock/mocks.go -package=gomock . Store,MigrationVerifier

var (
	// ErrUnknownUser means the user registry has no such user. It is distinct
	// from a known user that has no credential.
	ErrUnknownUser = errors.New("unknown user")
)

// Lookup is the credential state read before a reconciliation. HasRecord is
// false when no credential row exists; PasswordHash may be empty even when a
// row exists.
type Lookup struct {
	UserID             uint
	HasRecord          bool
	PasswordHash       []byte
	FailedAttemptCount uint8
}

func (l Lookup) HasPassword() bool { return l.HasRecord && len(l.PasswordHash) > 0 }

func (l Lookup) expectation() *Expectation {
	return &Expectation{HasRecord: l.HasRecord, PasswordHash: l.PasswordHash}
}

// Expectation is the row state a login decided on. A Request carrying one is
// applied only while the row still has that state.
type Expectation struct {
	HasRecord    bool
	PasswordHash []byte
}

func (x *Expectation) matches(existing *domain.Credential) bool {
	if existing == nil {
		return !x.HasRecord
	}
	return x.HasRecord && bytes.Equal(existing.PasswordHash, x.PasswordHash)
}

// Request is the instruction the engine hands to a Store. A nil Hash means the
// hash must not change; a non-nil empty Hash records a failed migration.
type Request struct {
	Actor   uint
	UserID  uint
	Hash    []byte
	Mode    Mode
	Failure FailureCode
	// Expect is nil for administrative writes.
	Expect *Expectation
}

// Store persists credential records. Reconcile must be atomic per call: the
// read of the current row and the write derived from it may not interleave
// with another Reconcile for the same user.
type Store interface {
	LookupByUserID(ctx context.Context, userID uint) (Lookup, error)
	LookupByName(ctx context.Context, name string) (Lookup, error)
	Reconcile(ctx context.Context, req Request) (Outcome, error)
	Destroy(ctx context.Context, actor, userID uint) error
}

// MigrationVerifier checks passwords against a legacy credential source.
type MigrationVerifier interface {
	Verify(ctx context.Context, userID uint, password string) (bool, error)
	OnMigrated(ctx context.Context, userID uint) error
}

// UserKey identifies the login subject either by ID or by name.
type UserKey struct {
	ID   uint
	Name string
}

func UserIDKey(id uint) UserKey       { return UserKey{ID: id} }
func UserNameKey(name string) UserKey { return UserKey{Name: name} }

// Kind is "name" or "id"; it is safe to use as a metric label.
func (k UserKey) Kind() string {
	if k.Name != "" {
		return "name"
	}
	return "id"
}
