package domain

import "fmt"

type VerificationResult string

const (
	ResultGranted     VerificationResult = "GRANTED"
	ResultAlreadyUsed VerificationResult = "ALREADY_USED"
	ResultDenied      VerificationResult = "DENIED"
	ResultNotFound    VerificationResult = "NOT_FOUND"
	ResultUnavailable VerificationResult = "UNAVAILABLE"
)

// DeactivationPolicy decides what a scan of an unused credential does once
// its graduate is no longer payment confirmed.
type DeactivationPolicy string

const (
	// PolicyDeny moves the companion to denied, permanently.
	PolicyDeny DeactivationPolicy = "deny"
	// PolicySuspend refuses entry but leaves the companion pending, so a
	// later reactivation makes the credential usable again.
	PolicySuspend DeactivationPolicy = "suspend"
)

func ParseDeactivationPolicy(s string) (DeactivationPolicy, error) {
	switch DeactivationPolicy(s) {
	case PolicyDeny, PolicySuspend:
		return DeactivationPolicy(s), nil
	}
	return "", fmt.Errorf("unknown deactivation policy %q", s)
}

// CheckInTransition is the outcome of evaluating a scan against a
// companion's current state. When From != To the caller must apply it as a
// compare-and-set on From.
type CheckInTransition struct {
	From   CompanionStatus
	To     CompanionStatus
	Result VerificationResult
}

func (t CheckInTransition) Mutates() bool {
	return t.From != t.To
}

// EvaluateCheckIn is the only place companion status changes are decided on
// the scanning path. checked_in and denied are absorbing.
func EvaluateCheckIn(current CompanionStatus, graduateActive bool, policy DeactivationPolicy) (CheckInTransition, error) {
	t := CheckInTransition{From: current, To: current}

	switch current {
	case CompanionCheckedIn:
		t.Result = ResultAlreadyUsed
	case CompanionDenied:
		t.Result = ResultDenied
	case CompanionPending:
		switch {
		case graduateActive:
			t.To = CompanionCheckedIn
			t.Result = ResultGranted
		case policy == PolicySuspend:
			t.Result = ResultDenied
		default:
			t.To = CompanionDenied
			t.Result = ResultDenied
		}
	default:
		return CheckInTransition{}, fmt.Errorf("unknown companion status %q", current)
	}

	return t, nil
}
