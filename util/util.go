package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/polyauthz/core/rbac"
)

// RemoveComments strips a trailing "# ..." comment from a matcher/effect
// expression, the way Model does for every assertion value it loads.
func RemoveComments(s string) string {
	if i := strings.Index(s, "#"); i != -1 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// assertionPrefixRe matches request/policy section references like "r.",
// "r2.", "p.", "p3." at a word boundary, so "r.sub" becomes "r_sub" and
// "r2.sub" becomes "r2_sub" without touching unrelated identifiers.
var assertionPrefixRe = regexp.MustCompile(`\b(r[0-9]*|p[0-9]*)\.`)

// EscapeAssertion rewrites bare "r.xxx"/"p.xxx" (and "r2.xxx", "p2.xxx", ...)
// dotted references into the "r_xxx"/"p_xxx" identifier shape govaluate can
// parse as a single token. Applied once at model-load time to matcher and
// policy_effect values, and again whenever a caller supplies an ad-hoc
// matcher string to EnforceWithMatcher.
func EscapeAssertion(s string) string {
	return assertionPrefixRe.ReplaceAllString(s, "${1}_")
}

var hasEvalRe = regexp.MustCompile(`\beval\(`)

// HasEval reports whether a matcher expression invokes the eval() builtin,
// which requires per-call expression construction since its argument is
// itself policy data, not a constant.
func HasEval(s string) bool {
	return hasEvalRe.MatchString(s)
}

// IsNumeric reports whether s parses cleanly as an integer or float,
// used by the JSON-attribute substitution path to decide whether a
// substituted value needs re-quoting.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// GenerateGFunction adapts a role manager into the matcher-callable g(...)
// function: g(sub, role[, domain]) => rm.HasLink(sub, role, domain...).
// The enforcer auto-registers one of these per role_definition entry, so a
// grouping call in a matcher is answered by the role graph rather than a
// user function.
func GenerateGFunction(rm rbac.RoleManager) func(args ...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		name1, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		name2, ok := args[1].(string)
		if !ok {
			return false, nil
		}

		if rm == nil {
			return name1 == name2, nil
		}

		if len(args) == 2 {
			return rm.HasLink(name1, name2)
		}
		domain, ok := args[2].(string)
		if !ok {
			return false, nil
		}
		return rm.HasLink(name1, name2, domain)
	}
}

// JoinRequestKey builds the cache key for the cached enforcer variant:
// the canonical string join of the request tuple.
func JoinRequestKey(rvals []interface{}) string {
	parts := make([]string, len(rvals))
	for i, v := range rvals {
		parts[i] = toKeyPart(v)
	}
	return strings.Join(parts, "::")
}

func toKeyPart(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case interface{ GetCacheKey() string }:
		return t.GetCacheKey()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
