// Package effector implements the policy-effect aggregator: it reduces the
// per-rule outcomes produced while iterating a policy-type's rules into one
// final allow/deny decision. Aggregation is streamed: the enforcer pushes
// one outcome per rule and stops as soon as the stream reports the decision
// can no longer change (`some(where allow)` and `priority` both
// short-circuit this way).
package effector

import "fmt"

// Effect is the per-rule outcome fed into the aggregator.
type Effect int

const (
	// Indeterminate means this rule decided nothing for this call: its
	// matcher was false, it errored, or its eft value was unrecognized.
	Indeterminate Effect = iota
	Allow
	Deny
)

// Stream folds the outcomes of one enforce call. Push returns true once
// the decision is final, letting the caller skip the remaining rules.
type Stream interface {
	Push(eft Effect) bool
	// Decision is valid once every rule has been pushed or Push returned
	// true, and resolves the expression's default for undecided streams.
	Decision() bool
	// DecidedBy returns the index of the rule that fixed the decision, or
	// -1 when the result came from the expression's default.
	DecidedBy() int
}

// Effector creates one Stream per enforce call, validated against the
// model's policy_effect expression.
type Effector interface {
	NewStream(expr string, ruleCount int) (Stream, error)
}

// DefaultEffector supports the closed set of policy_effect expressions.
type DefaultEffector struct{}

// NewDefaultEffector constructs the default effector.
func NewDefaultEffector() *DefaultEffector { return &DefaultEffector{} }

// Aggregation modes, one per supported expression family. Expressions are
// matched against the model's policy_effect value *after* the model loader
// has escaped it; the "p.eft" -> "p_eft" rewrite applies uniformly to
// matchers and effect expressions.
type mode int

const (
	// anyAllow: the first matching allow decides true; default false.
	anyAllow mode = iota
	// noDeny: the first matching deny decides false; default true.
	noDeny
	// allowUnlessDeny: a deny decides false immediately; otherwise true
	// iff at least one allow matched.
	allowUnlessDeny
	// firstMatch: rules arrive pre-sorted by priority and the first one
	// whose matcher passed dictates the result; default deny.
	firstMatch
)

// NewStream validates expr and returns a fresh stream for one enforce
// call over ruleCount rules.
func (e *DefaultEffector) NewStream(expr string, ruleCount int) (Stream, error) {
	var m mode
	switch expr {
	case "some(where (p_eft == allow))":
		m = anyAllow
	case "!some(where (p_eft == deny))":
		m = noDeny
	case "some(where (p_eft == allow)) && !some(where (p_eft == deny))":
		m = allowUnlessDeny
	case "priority(p_eft) || deny", "subjectPriority(p_eft) || deny", "subjectPriority(p_eft)":
		m = firstMatch
	default:
		return nil, fmt.Errorf("effector: unsupported policy_effect expression: %q", expr)
	}
	return &stream{mode: m, decidedBy: -1, firstAllow: -1}, nil
}

type stream struct {
	mode       mode
	next       int
	done       bool
	result     bool
	decidedBy  int
	firstAllow int
}

func (s *stream) Push(eft Effect) bool {
	idx := s.next
	s.next++
	if s.done {
		return true
	}
	switch s.mode {
	case anyAllow:
		if eft == Allow {
			s.conclude(true, idx)
		}
	case noDeny:
		if eft == Deny {
			s.conclude(false, idx)
		}
	case allowUnlessDeny:
		if eft == Deny {
			s.conclude(false, idx)
		} else if eft == Allow && s.firstAllow < 0 {
			s.firstAllow = idx
		}
	case firstMatch:
		if eft != Indeterminate {
			s.conclude(eft == Allow, idx)
		}
	}
	return s.done
}

func (s *stream) conclude(result bool, idx int) {
	s.done = true
	s.result = result
	s.decidedBy = idx
}

func (s *stream) Decision() bool {
	if s.done {
		return s.result
	}
	switch s.mode {
	case noDeny:
		return true
	case allowUnlessDeny:
		return s.firstAllow >= 0
	default:
		return false
	}
}

func (s *stream) DecidedBy() int {
	if s.done {
		return s.decidedBy
	}
	if s.mode == allowUnlessDeny {
		return s.firstAllow
	}
	return -1
}
