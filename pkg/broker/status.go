package broker

import "fmt"

// Status represents the order lifecycle.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusSubmitted       Status = "SUBMITTED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
)

type statusTransition struct {
	from Status
	to   Status
}

// legalTransitions is the full transition table. Terminal statuses have no
// outgoing edges; PARTIALLY_FILLED re-enters itself on successive partial
// fills.
var legalTransitions = map[statusTransition]bool{
	{StatusPending, StatusSubmitted}: true,
	{StatusPending, StatusRejected}:  true,

	{StatusSubmitted, StatusPartiallyFilled}: true,
	{StatusSubmitted, StatusFilled}:          true,
	{StatusSubmitted, StatusCancelled}:       true,
	{StatusSubmitted, StatusRejected}:        true,

	{StatusPartiallyFilled, StatusPartiallyFilled}: true,
	{StatusPartiallyFilled, StatusFilled}:          true,
	{StatusPartiallyFilled, StatusCancelled}:       true,
}

// ValidateTransition reports whether from -> to is a legal status change.
// Identical statuses are allowed for idempotency.
func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if !legalTransitions[statusTransition{from, to}] {
		return fmt.Errorf("illegal status transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions are permitted.
func IsTerminal(status Status) bool {
	switch status {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// CanCancel reports whether a cancel request can still take effect.
func CanCancel(status Status) bool {
	switch status {
	case StatusPending, StatusSubmitted, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}
