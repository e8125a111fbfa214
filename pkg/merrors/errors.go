// Package merrors defines the named error variants the core raises.
// Domain code never constructs an HTTP status directly — it returns one
// of these types and the transport layer (pkg/mhttp) performs the
// mapping.
package merrors

import "fmt"

// NotFoundError indicates a requested entity (variation, repo, branch,
// commit, PR, asset) does not exist.
type NotFoundError struct {
	EntityType string
	Message    string
	Err        error
}

func (e NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("%s not found", e.EntityType)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError indicates malformed or missing input.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e ValidationError) Error() string { return e.Message }
func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError indicates a concurrency conflict: a state-machine
// violation, a baseline mismatch, or a push rejected by force-with-lease.
type ConflictError struct {
	Code    string
	Message string
	// Details carries extra fields the response should surface, e.g.
	// {"currentStateId": "3"} or {"currentStatus": "committed"}.
	Details map[string]any
}

func (e ConflictError) Error() string { return e.Message }

// UnauthorizedError indicates a missing or invalid bearer token.
type UnauthorizedError struct {
	Message string
}

func (e UnauthorizedError) Error() string { return e.Message }

// ForbiddenError indicates an authenticated caller lacking privileges,
// e.g. a public read against a private repo.
type ForbiddenError struct {
	Message string
}

func (e ForbiddenError) Error() string { return e.Message }

// BudgetExhaustedError indicates the caller has insufficient budget to
// execute a variation proposal (HTTP 402).
type BudgetExhaustedError struct {
	BudgetRemaining float64
}

func (e BudgetExhaustedError) Error() string {
	return fmt.Sprintf("insufficient budget: %.2f remaining", e.BudgetRemaining)
}

// UnavailableError indicates a required external dependency (object
// storage, a required binary) is unreachable.
type UnavailableError struct {
	Message string
	Err     error
}

func (e UnavailableError) Error() string { return e.Message }
func (e UnavailableError) Unwrap() error { return e.Err }

// InternalError wraps an unexpected failure. The raw error is logged but
// never rendered to the client verbatim — only TraceID is returned.
type InternalError struct {
	TraceID string
	Err     error
}

func (e InternalError) Error() string {
	return fmt.Sprintf("internal error (trace=%s): %v", e.TraceID, e.Err)
}

func (e InternalError) Unwrap() error { return e.Err }
