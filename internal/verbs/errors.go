package verbs

import (
	"errors"
	"fmt"
)

// Sentinels for the error taxonomy. Only policy load failures and
// unexpected faults may abort the whole run; everything here is scoped
// to a single verb invocation.
var (
	// ErrPolicyViolation means the verb/target/path combination is not permitted.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrValidation means the target content is malformed; the original
	// file is left untouched.
	ErrValidation = errors.New("target content invalid")
)

// PolicyViolationError explains which rule refused the mutation.
type PolicyViolationError struct {
	Target string
	Verb   string
	Path   string
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: %s on %s: %s", e.Verb, e.Target, e.Reason)
}

func (e *PolicyViolationError) Unwrap() error {
	return ErrPolicyViolation
}

// ValidationError wraps a content parse failure for one target.
type ValidationError struct {
	Target string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s content: %v", e.Target, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
