package credential

import "testing"

func TestNextFailedAttemptCount(t *testing.T) {
	login := ModeCreateOrUpdate | ModeWithActualLogin
	check := ModeCreateOrUpdate | ModeWithCheckLogin

	cases := []struct {
		name    string
		current uint8
		mode    Mode
		failure FailureCode
		want    uint8
	}{
		{"invalid credentials increments", 3, login, FailureInvalidCredentials, 4},
		{"unregistered user increments", 0, check, FailureUnregisteredUser, 1},
		{"saturates at 255", 255, login, FailureInvalidCredentials, 255},
		{"254 reaches 255", 254, login, FailureInvalidCredentials, 255},
		{"success resets", 200, login, FailureNone, 0},
		{"check login success resets", 7, check, FailureNone, 0},
		{"non-login untouched on failure", 9, ModeCreateOrUpdate, FailureInvalidCredentials, 9},
		{"non-login untouched on success", 9, ModeUpdateOnly, FailureNone, 9},
		{"invalid user key does not count", 2, login, FailureInvalidUserKey, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextFailedAttemptCount(tc.current, tc.mode, tc.failure); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
