package usecase

import "fmt"

// ValidationError reports a malformed request (missing note, bad
// decision). Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an absent record or one outside the caller's
// tenant scope. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ForbiddenError reports a conflict-of-interest or ownership violation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// ConflictError reports a state-guard violation. CurrentStatus carries
// the attempt's observed status for diagnostics.
type ConflictError struct {
	Message       string
	CurrentStatus string
}

func (e *ConflictError) Error() string {
	if e.CurrentStatus == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (current status: %s)", e.Message, e.CurrentStatus)
}

// InternalError wraps an unexpected failure, typically a transient
// storage error that survived all retries. The cause is preserved for
// logging.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
