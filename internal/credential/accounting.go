package credential

import "math"

// NextFailedAttemptCount applies the failed-attempt policy for one
// reconciliation. Only login reconciliations touch the counter: qualifying
// failures add one, saturating at 255, and a clean login resets it.
func NextFailedAttemptCount(current uint8, mode Mode, failure FailureCode) uint8 {
	if !mode.IsLogin() {
		return current
	}
	if failure == FailureNone {
		return 0
	}
	if failure.countsAsAttempt() && current < math.MaxUint8 {
		return current + 1
	}
	return current
}
