package credential

import (
	"bytes"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"
)

// Plan is the result of applying a Request to the current row.
type Plan struct {
	// Record is the row to persist; nil when Write is false.
	Record  *domain.Credential
	Write   bool
	Outcome Outcome
}

// Apply is the reconciliation primitive every Store runs inside its atomic
// section. existing is nil when the user has no credential row.
func Apply(existing *domain.Credential, req Request, now time.Time) Plan {
	if req.Expect != nil && !req.Expect.matches(existing) {
		return Plan{Outcome: Outcome{Stale: true, Login: newLoginResult(req.UserID, FailureInvalidCredentials)}}
	}
	failure := req.Failure
	op := OperationNone

	var rec domain.Credential
	exists := existing != nil
	if exists {
		rec = *existing
		rec.PasswordHash = append([]byte(nil), existing.PasswordHash...)
	} else {
		rec.UserID = req.UserID
	}
	dirty := false

	if req.Hash != nil {
		switch {
		case !exists && req.Mode.CanCreate():
			rec.PasswordHash = append([]byte{}, req.Hash...)
			rec.LastWriteAt = now
			op = OperationCreated
			dirty = true
		case exists && req.Mode.CanUpdate():
			if !bytes.Equal(rec.PasswordHash, req.Hash) {
				rec.PasswordHash = append([]byte{}, req.Hash...)
				rec.LastWriteAt = now
				op = OperationUpdated
				dirty = true
			}
		case failure == FailureNone:
			// Create-only on an existing row, or update-only without one.
			failure = FailureInvalidCredentials
		}
	}

	if req.Mode.IsLogin() && (exists || dirty) {
		next := NextFailedAttemptCount(rec.FailedAttemptCount, req.Mode, failure)
		if next != rec.FailedAttemptCount {
			rec.FailedAttemptCount = next
			dirty = true
		}
		if failure == FailureNone && req.Mode&ModeWithActualLogin != 0 {
			t := now
			rec.LastLoginAt = &t
			dirty = true
		}
	}

	plan := Plan{Outcome: Outcome{Operation: op, Login: newLoginResult(req.UserID, failure)}}
	if dirty {
		plan.Record = &rec
		plan.Write = true
	}
	return plan
}
