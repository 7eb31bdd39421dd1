package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/observability"
	"github.com/sandeepkv93/secure-credential-service/internal/security"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	tracerName = "github.com/sandeepkv93/secure-credential-service/internal/credential"

	migratedNotifyTimeout = 5 * time.Second
	dummyPassword         = "dummy-password-for-timing"
	staleLoginRetries     = 1
)

// Hasher is the password hashing capability the engine needs.
type Hasher interface {
	Hash(password string) ([]byte, error)
	Verify(stored []byte, password string) security.VerifyResult
}

type Engine struct {
	store    Store
	hasher   Hasher
	migrator MigrationVerifier
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte

	notify sync.WaitGroup
}

// NewEngine wires the reconciliation engine. migrator may be nil.
func NewEngine(store Store, hasher Hasher, migrator MigrationVerifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, hasher: hasher, migrator: migrator, logger: logger}
}

// Wait blocks until pending migration notifications have finished.
func (e *Engine) Wait() { e.notify.Wait() }

func (e *Engine) Login(ctx context.Context, key UserKey, password string, actualLogin bool) (LoginResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "credential.login")
	defer span.End()
	span.SetAttributes(attribute.String("credential.key_type", key.Kind()), attribute.Bool("credential.actual_login", actualLogin))

	res, err := e.login(ctx, key, password, actualLogin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		observability.RecordCredentialLogin(ctx, key.Kind(), "error")
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.String("credential.failure", res.Failure.String()))
	outcome := "success"
	if !res.Succeeded {
		outcome = res.Failure.String()
	}
	observability.RecordCredentialLogin(ctx, key.Kind(), outcome)
	return res, nil
}

// login retries once when the credential changed between lookup and write.
// A second lost race is reported as a failed login.
func (e *Engine) login(ctx context.Context, key UserKey, password string, actualLogin bool) (LoginResult, error) {
	for retry := 0; ; retry++ {
		res, stale, err := e.attempt(ctx, key, password, actualLogin)
		if err != nil || !stale {
			return res, err
		}
		if retry >= staleLoginRetries {
			e.logger.WarnContext(ctx, "credential kept changing during login", "user_id", res.UserID)
			return newLoginResult(res.UserID, FailureInvalidCredentials), nil
		}
		e.logger.DebugContext(ctx, "credential changed during login, retrying", "user_id", res.UserID)
	}
}

func (e *Engine) attempt(ctx context.Context, key UserKey, password string, actualLogin bool) (LoginResult, bool, error) {
	lookup, err := e.lookup(ctx, key)
	if errors.Is(err, ErrUnknownUser) {
		e.burnVerify(password)
		return invalidUserKey(), false, nil
	}
	if err != nil {
		return LoginResult{}, false, fmt.Errorf("lookup credential: %w", err)
	}
	if password == "" {
		return newLoginResult(lookup.UserID, FailureInvalidCredentials), false, nil
	}

	login := loginMode(actualLogin)
	expect := lookup.expectation()
	migrated := false
	var verdict security.VerifyResult

	switch {
	case lookup.HasPassword():
		verdict = e.timedVerify(ctx, lookup.PasswordHash, password)
	case e.migrator != nil:
		ok, err := e.migrator.Verify(ctx, lookup.UserID, password)
		if err != nil {
			return LoginResult{}, false, fmt.Errorf("legacy verify: %w", err)
		}
		if !ok {
			observability.RecordCredentialMigration(ctx, "rejected")
			e.logger.InfoContext(ctx, "legacy credential rejected", "user_id", lookup.UserID)
			return e.reconcile(ctx, Request{
				UserID:  lookup.UserID,
				Hash:    []byte{},
				Mode:    (ModeCreateOrUpdate &^ ModeUpdateOnly) | login,
				Failure: FailureUnregisteredUser,
				Expect:  expect,
			})
		}
		verdict = security.VerifySuccessRehashNeeded
		migrated = true
	default:
		e.burnVerify(password)
		verdict = security.VerifyFailed
	}

	switch verdict {
	case security.VerifySuccessRehashNeeded:
		return e.rehash(ctx, lookup.UserID, password, login, migrated, expect)
	case security.VerifySuccess:
		return e.reconcile(ctx, Request{UserID: lookup.UserID, Mode: ModeCreateOrUpdate | login, Expect: expect})
	default:
		return e.reconcile(ctx, Request{
			UserID:  lookup.UserID,
			Mode:    ModeCreateOrUpdate | login,
			Failure: FailureInvalidCredentials,
			Expect:  expect,
		})
	}
}

func (e *Engine) rehash(ctx context.Context, userID uint, password string, login Mode, migrated bool, expect *Expectation) (LoginResult, bool, error) {
	hash, err := e.timedHash(ctx, password)
	if err != nil {
		return LoginResult{}, false, fmt.Errorf("rehash password: %w", err)
	}
	outcome, err := e.reconcileOutcome(ctx, Request{UserID: userID, Hash: hash, Mode: ModeCreateOrUpdate | login, Expect: expect})
	if err != nil {
		return LoginResult{}, false, err
	}
	if outcome.Stale {
		return outcome.Login, true, nil
	}
	reason := "iterations"
	if migrated {
		reason = "migration"
	}
	if outcome.Operation.Mutated() {
		observability.RecordCredentialRehash(ctx, reason)
	}
	if migrated && outcome.Operation.Mutated() {
		observability.RecordCredentialMigration(ctx, "migrated")
		e.notifyMigrated(ctx, userID)
	}
	return outcome.Login, false, nil
}

func (e *Engine) reconcile(ctx context.Context, req Request) (LoginResult, bool, error) {
	outcome, err := e.reconcileOutcome(ctx, req)
	if err != nil {
		return LoginResult{}, false, err
	}
	return outcome.Login, outcome.Stale, nil
}

// reconcileOutcome honours cancellation up to the write. Once issued, the
// write runs to completion on a context that ignores the caller's cancel.
func (e *Engine) reconcileOutcome(ctx context.Context, req Request) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if err := req.Mode.Validate(); err != nil {
		return Outcome{}, err
	}
	outcome, err := e.store.Reconcile(context.WithoutCancel(ctx), req)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile credential: %w", err)
	}
	operation := outcome.Operation.String()
	if outcome.Stale {
		operation = "stale"
	}
	observability.RecordCredentialReconcile(ctx, req.Mode.String(), operation)
	return outcome, nil
}

func (e *Engine) notifyMigrated(ctx context.Context, userID uint) {
	e.notify.Add(1)
	go func() {
		defer e.notify.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), migratedNotifyTimeout)
		defer cancel()
		if err := e.migrator.OnMigrated(nctx, userID); err != nil {
			e.logger.WarnContext(nctx, "legacy migration notification failed", "user_id", userID, "error", err)
			return
		}
		e.logger.InfoContext(nctx, "legacy credential migrated", "user_id", userID)
	}()
}

func (e *Engine) lookup(ctx context.Context, key UserKey) (Lookup, error) {
	if key.Name != "" {
		return e.store.LookupByName(ctx, key.Name)
	}
	if key.ID == 0 {
		return Lookup{}, ErrUnknownUser
	}
	return e.store.LookupByUserID(ctx, key.ID)
}

func (e *Engine) timedVerify(ctx context.Context, stored []byte, password string) security.VerifyResult {
	start := time.Now()
	res := e.hasher.Verify(stored, password)
	observability.RecordPasswordHashDuration(ctx, "verify", time.Since(start))
	return res
}

func (e *Engine) timedHash(ctx context.Context, password string) ([]byte, error) {
	start := time.Now()
	hash, err := e.hasher.Hash(password)
	observability.RecordPasswordHashDuration(ctx, "hash", time.Since(start))
	return hash, err
}

// burnVerify spends roughly one verification worth of CPU so that unknown
// users and users without a credential answer in about the same time.
func (e *Engine) burnVerify(password string) {
	e.dummyOnce.Do(func() {
		h, err := e.hasher.Hash(dummyPassword)
		if err == nil {
			e.dummyHash = h
		}
	})
	if e.dummyHash == nil || password == "" {
		return
	}
	_ = e.hasher.Verify(e.dummyHash, password)
}
