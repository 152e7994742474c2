// Package errs defines the error taxonomy used across the enforcement core.
//
// Kinds are sentinel values rather than distinct types so callers can use
// errors.Is against a stable set, and wrap with fmt.Errorf("...: %w", ...)
// for context the way the rest of the module does.
package errs

import "errors"

var (
	// ErrModel covers config/model-load failures: missing section, unparsable matcher.
	ErrModel = errors.New("model error")

	// ErrPolicyExists is returned when a set-semantic insert would duplicate a rule.
	ErrPolicyExists = errors.New("policy already exists")

	// ErrPolicyMissing is returned when a removal/update targets a rule that isn't present.
	ErrPolicyMissing = errors.New("policy does not exist")

	// ErrInvalidSection is returned by Self* management calls given a section
	// that is neither "p" nor "g".
	ErrInvalidSection = errors.New("invalid policy section")

	// ErrUndefinedAssertion is returned when an operation names a
	// (section, policy-type) pair the loaded model never declared, e.g.
	// AddPolicy against "p9" when the model only defines "p".
	ErrUndefinedAssertion = errors.New("assertion not defined in model")

	// ErrRoleManagerNotFound is returned for operations against an uninitialized
	// named role manager.
	ErrRoleManagerNotFound = errors.New("role manager not found")

	// ErrAdapterNotSet is returned when an operation that requires an adapter
	// (LoadPolicy, SavePolicy) is invoked without one configured.
	ErrAdapterNotSet = errors.New("adapter not set")

	// ErrFilteredPolicy is returned by SavePolicy when the in-memory policy was
	// loaded via a filter and can no longer be safely persisted in full.
	ErrFilteredPolicy = errors.New("cannot save a filtered policy")

	// ErrUnsupportedOperation is returned by adapters that cannot support an
	// incremental operation (filtered load, single-rule add/remove).
	ErrUnsupportedOperation = errors.New("adapter does not support this operation")

	// ErrTransactionAborted is returned by Commit when a staged operation fails;
	// the caller keeps the original snapshot.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrTransactionClosed is returned when staging or committing/rolling back
	// a transaction that has already been committed or rolled back.
	ErrTransactionClosed = errors.New("transaction already closed")

	// ErrEvaluation marks a matcher failure scoped to a single policy rule.
	// It never escapes the enforcer: the rule is recorded as a non-match and
	// evaluation continues with the next rule.
	ErrEvaluation = errors.New("matcher evaluation error")
)

// ModelError wraps a config/model problem with the offending detail.
type ModelError struct {
	Detail string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return "model error: " + e.Detail + ": " + e.Err.Error()
	}
	return "model error: " + e.Detail
}

func (e *ModelError) Unwrap() error { return ErrModel }

// NewModelError builds a ModelError, optionally wrapping a lower-level cause.
func NewModelError(detail string, cause error) *ModelError {
	return &ModelError{Detail: detail, Err: cause}
}
