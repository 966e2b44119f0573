package client

import (
	"fmt"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// UnexpectedPromptError reports a post-credentials page that is neither a
// known two-factor challenge nor an authenticated page.
type UnexpectedPromptError struct {
	Prompt string
}

func (e *UnexpectedPromptError) Error() string {
	return fmt.Sprintf("unexpected login prompt: %q", e.Prompt)
}

// ConsistencyError reports contradictory state across server responses,
// e.g. the two catalog pages disagreeing on the cash balance or an issue
// repeating across portfolio pages.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "inconsistent server state: " + e.Detail
}

// The purchase guardrails below are pre-submission checks. They are fatal
// for the running command, not transient: re-running with the same
// arguments will fail the same way.

// IssueMismatchError reports that the server's disposition snapshot is
// for a different issue than requested.
type IssueMismatchError struct {
	Requested string
	Received  string
}

func (e *IssueMismatchError) Error() string {
	return fmt.Sprintf("issue mismatch: requested %q but server selected %q", e.Requested, e.Received)
}

// InsufficientFundsError reports that the order value exceeds the cash
// balance.
type InsufficientFundsError struct {
	Required  models.Money
	Available models.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: order of %s exceeds balance of %s", e.Required, e.Available)
}

// QuotaExceededError reports an order above the maximum purchasable unit
// count, whether server-reported or derived from the balance.
type QuotaExceededError struct {
	Requested int
	Max       int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: requested %d units, at most %d purchasable", e.Requested, e.Max)
}

// SuitabilityError reports that the server flagged the transaction as not
// matching the investor's declared target group.
type SuitabilityError struct {
	IssueCode string
}

func (e *SuitabilityError) Error() string {
	return fmt.Sprintf("transaction in %s is not compatible with the declared target group", e.IssueCode)
}
