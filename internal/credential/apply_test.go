package credential

import (
	"bytes"
	"testing"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

var applyNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func existingRecord(hash []byte, failed uint8) *domain.Credential {
	return &domain.Credential{
		UserID:             7,
		PasswordHash:       hash,
		LastWriteAt:        applyNow.Add(-time.Hour),
		FailedAttemptCount: failed,
	}
}

func TestApplyCreate(t *testing.T) {
	plan := Apply(nil, Request{UserID: 7, Hash: []byte("h1"), Mode: ModeCreateOrUpdate}, applyNow)
	if !plan.Write || plan.Outcome.Operation != OperationCreated {
		t.Fatalf("expected created write, got %+v", plan)
	}
	if !bytes.Equal(plan.Record.PasswordHash, []byte("h1")) || !plan.Record.LastWriteAt.Equal(applyNow) {
		t.Fatalf("unexpected record %+v", plan.Record)
	}
	if !plan.Outcome.Login.Succeeded || plan.Outcome.Login.UserID != 7 {
		t.Fatalf("unexpected login result %+v", plan.Outcome.Login)
	}
}

func TestApplyCreateOnlyOnExistingRecord(t *testing.T) {
	plan := Apply(existingRecord([]byte("old"), 0), Request{UserID: 7, Hash: []byte("new"), Mode: ModeCreateOnly}, applyNow)
	if plan.Write || plan.Outcome.Operation != OperationNone {
		t.Fatalf("expected no write, got %+v", plan)
	}
	if plan.Outcome.Login.Failure != FailureInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %s", plan.Outcome.Login.Failure)
	}
}

func TestApplyUpdateOnlyWithoutRecord(t *testing.T) {
	plan := Apply(nil, Request{UserID: 7, Hash: []byte("new"), Mode: ModeUpdateOnly}, applyNow)
	if plan.Write || plan.Outcome.Operation != OperationNone {
		t.Fatalf("expected no write, got %+v", plan)
	}
	if plan.Outcome.Login.Succeeded {
		t.Fatal("expected failure for update without record")
	}
}

func TestApplyUpdateSameHashIsNoop(t *testing.T) {
	plan := Apply(existingRecord([]byte("same"), 0), Request{UserID: 7, Hash: []byte("same"), Mode: ModeCreateOrUpdate}, applyNow)
	if plan.Write || plan.Outcome.Operation != OperationNone || !plan.Outcome.Login.Succeeded {
		t.Fatalf("expected idempotent no-op, got %+v", plan)
	}
}

func TestApplyUpdateDoesNotAliasInput(t *testing.T) {
	existing := existingRecord([]byte("old"), 0)
	hash := []byte("new")
	plan := Apply(existing, Request{UserID: 7, Hash: hash, Mode: ModeUpdateOnly}, applyNow)
	if plan.Outcome.Operation != OperationUpdated {
		t.Fatalf("expected updated, got %s", plan.Outcome.Operation)
	}
	hash[0] = 'X'
	if !bytes.Equal(existing.PasswordHash, []byte("old")) || !bytes.Equal(plan.Record.PasswordHash, []byte("new")) {
		t.Fatalf("record aliases caller buffers: existing=%q planned=%q", existing.PasswordHash, plan.Record.PasswordHash)
	}
}

func TestApplyMigrationFailureCreatesEmptyHashRow(t *testing.T) {
	req := Request{
		UserID:  7,
		Hash:    []byte{},
		Mode:    ModeCreateOnly | ModeWithActualLogin,
		Failure: FailureUnregisteredUser,
	}
	plan := Apply(nil, req, applyNow)
	if !plan.Write || plan.Outcome.Operation != OperationCreated {
		t.Fatalf("expected empty-hash row to be created, got %+v", plan)
	}
	if plan.Record.PasswordHash == nil || len(plan.Record.PasswordHash) != 0 {
		t.Fatalf("expected empty non-nil hash, got %v", plan.Record.PasswordHash)
	}
	if plan.Record.FailedAttemptCount != 1 || plan.Record.LastLoginAt != nil {
		t.Fatalf("unexpected bookkeeping %+v", plan.Record)
	}
	if plan.Outcome.Login.Failure != FailureUnregisteredUser {
		t.Fatalf("expected unregistered user, got %s", plan.Outcome.Login.Failure)
	}

	again := Apply(plan.Record, req, applyNow.Add(time.Minute))
	if again.Outcome.Operation != OperationNone || again.Record.FailedAttemptCount != 2 {
		t.Fatalf("expected counter bump on repeated failure, got %+v", again)
	}
}

func TestApplyLoginBookkeeping(t *testing.T) {
	t.Run("failure increments without touching last login", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 4), Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithActualLogin, Failure: FailureInvalidCredentials}, applyNow)
		if !plan.Write || plan.Record.FailedAttemptCount != 5 || plan.Record.LastLoginAt != nil {
			t.Fatalf("unexpected plan %+v", plan.Record)
		}
		if plan.Outcome.Operation != OperationNone {
			t.Fatalf("expected no hash operation, got %s", plan.Outcome.Operation)
		}
	})
	t.Run("actual login success resets and stamps", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 4), Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithActualLogin}, applyNow)
		if plan.Record.FailedAttemptCount != 0 || plan.Record.LastLoginAt == nil || !plan.Record.LastLoginAt.Equal(applyNow) {
			t.Fatalf("unexpected plan %+v", plan.Record)
		}
	})
	t.Run("check login success resets without stamping", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 4), Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithCheckLogin}, applyNow)
		if plan.Record.FailedAttemptCount != 0 || plan.Record.LastLoginAt != nil {
			t.Fatalf("unexpected plan %+v", plan.Record)
		}
	})
	t.Run("check login success on clean row writes nothing", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 0), Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithCheckLogin}, applyNow)
		if plan.Write {
			t.Fatalf("expected no write, got %+v", plan.Record)
		}
	})
	t.Run("login without row creates nothing", func(t *testing.T) {
		plan := Apply(nil, Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithActualLogin, Failure: FailureInvalidCredentials}, applyNow)
		if plan.Write || plan.Outcome.Login.Failure != FailureInvalidCredentials {
			t.Fatalf("unexpected plan %+v", plan)
		}
	})
	t.Run("saturated counter is not rewritten", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 255), Request{UserID: 7, Mode: ModeCreateOrUpdate | ModeWithCheckLogin, Failure: FailureInvalidCredentials}, applyNow)
		if plan.Write {
			t.Fatalf("expected no write at saturation, got %+v", plan.Record)
		}
	})
	t.Run("non-login update leaves counter", func(t *testing.T) {
		plan := Apply(existingRecord([]byte("h"), 9), Request{UserID: 7, Hash: []byte("h2"), Mode: ModeUpdateOnly}, applyNow)
		if plan.Record.FailedAttemptCount != 9 || plan.Record.LastLoginAt != nil {
			t.Fatalf("unexpected plan %+v", plan.Record)
		}
	})
}

func TestApplyStaleExpectationWritesNothing(t *testing.T) {
	cases := []struct {
		name     string
		existing *domain.Credential
		expect   Expectation
	}{
		{"hash replaced", existingRecord([]byte("new"), 0), Expectation{HasRecord: true, PasswordHash: []byte("old")}},
		{"row appeared", existingRecord([]byte("h"), 0), Expectation{}},
		{"row removed", nil, Expectation{HasRecord: true, PasswordHash: []byte("h")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := Request{UserID: 7, Hash: []byte("rehashed"), Mode: ModeCreateOrUpdate | ModeWithActualLogin, Expect: &tc.expect}
			plan := Apply(tc.existing, req, applyNow)
			if plan.Write || plan.Record != nil || !plan.Outcome.Stale {
				t.Fatalf("expected stale plan without write, got %+v", plan)
			}
			if plan.Outcome.Operation != OperationNone || plan.Outcome.Login.Failure != FailureInvalidCredentials {
				t.Fatalf("unexpected outcome %+v", plan.Outcome)
			}
		})
	}
}

func TestApplyMatchingExpectationProceeds(t *testing.T) {
	expect := &Expectation{HasRecord: true, PasswordHash: []byte("old")}
	plan := Apply(existingRecord([]byte("old"), 2), Request{UserID: 7, Hash: []byte("rehashed"), Mode: ModeCreateOrUpdate | ModeWithCheckLogin, Expect: expect}, applyNow)
	if plan.Outcome.Stale || !plan.Write || plan.Outcome.Operation != OperationUpdated {
		t.Fatalf("expected update, got %+v", plan)
	}
	if plan.Record.FailedAttemptCount != 0 {
		t.Fatalf("expected counter reset, got %d", plan.Record.FailedAttemptCount)
	}
}
