package quest

import (
	"errors"
	"fmt"
)

// FailCode classifies expected operation failures
type FailCode string

const (
	// FailNotFound means the quest or objective id is unknown.
	FailNotFound FailCode = "not_found"

	// FailPrecondition covers unmet prerequisites, duplicate acceptance,
	// mutual exclusivity, disallowed abandonment and bad transitions.
	FailPrecondition FailCode = "precondition_failed"

	// FailPersistence means the catalog save failed; the in-memory state
	// was rolled back and the operation must not be treated as applied.
	FailPersistence FailCode = "persistence_failure"
)

// Failure is the result returned for expected business-rule failures.
// Callers distinguish codes with AsFailure; nothing in this package
// panics for an expected failure.
type Failure struct {
	Code   FailCode
	Reason string
	Err    error // Underlying cause for persistence failures
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NotFound builds a not-found failure
func NotFound(format string, args ...any) *Failure {
	return &Failure{Code: FailNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Precondition builds a precondition failure
func Precondition(format string, args ...any) *Failure {
	return &Failure{Code: FailPrecondition, Reason: fmt.Sprintf(format, args...)}
}

// PersistenceFailed wraps a catalog save error
func PersistenceFailed(err error) *Failure {
	return &Failure{Code: FailPersistence, Reason: "catalog save failed", Err: err}
}

// AsFailure extracts a *Failure from an error chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsCode reports whether err is a Failure with the given code
func IsCode(err error, code FailCode) bool {
	f, ok := AsFailure(err)
	return ok && f.Code == code
}
