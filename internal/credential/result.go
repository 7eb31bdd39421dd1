package credential

// FailureCode classifies an unsuccessful authentication outcome.
type FailureCode uint8

const (
	FailureNone FailureCode = iota
	FailureInvalidUserKey
	FailureInvalidCredentials
	FailureUnregisteredUser
)

func (c FailureCode) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureInvalidUserKey:
		return "invalid_user_key"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureUnregisteredUser:
		return "unregistered_user"
	default:
		return "unknown"
	}
}

// countsAsAttempt reports whether a login carrying this code is a failed attempt.
func (c FailureCode) countsAsAttempt() bool {
	return c == FailureInvalidCredentials || c == FailureUnregisteredUser
}

type OperationResult uint8

const (
	OperationNone OperationResult = iota
	OperationCreated
	OperationUpdated
)

func (r OperationResult) String() string {
	switch r {
	case OperationCreated:
		return "created"
	case OperationUpdated:
		return "updated"
	default:
		return "none"
	}
}

// Mutated reports whether the credential hash was written.
func (r OperationResult) Mutated() bool { return r != OperationNone }

type LoginResult struct {
	Succeeded bool
	UserID    uint
	Failure   FailureCode
}

func newLoginResult(userID uint, failure FailureCode) LoginResult {
	return LoginResult{Succeeded: failure == FailureNone, UserID: userID, Failure: failure}
}

func invalidUserKey() LoginResult {
	return LoginResult{Failure: FailureInvalidUserKey}
}

// Outcome is what a reconciliation produced.
type Outcome struct {
	Operation OperationResult
	Login     LoginResult
	// Stale means the row no longer matched the request's Expectation and
	// nothing was written.
	Stale bool
}
