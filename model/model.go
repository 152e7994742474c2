// Package model is the typed representation of a loaded Casbin-style
// model: request_definition, policy_definition, role_definition,
// policy_effect, matchers, each parsed into named Assertions, plus the
// in-memory policy/grouping tables those assertions carry; one rule
// table per policy-type, indexed the way the enforcer reads them
// (m["p"][ptype].Policy).
package model

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/polyauthz/core/errs"
	"github.com/polyauthz/core/internal/config"
	"github.com/polyauthz/core/log"
	"github.com/polyauthz/core/util"
)

// sectionNames maps a model-file section header to the short key the rest
// of the core indexes by (r, p, g, e, m).
var sectionNames = map[string]string{
	"request_definition": "r",
	"policy_definition":  "p",
	"role_definition":    "g",
	"policy_effect":      "e",
	"matchers":           "m",
}

var requiredSections = []string{"r", "p", "e", "m"}

// AssertionMap indexes the assertions of one section by their key
// ("r", "r2", "p", "g2", ...).
type AssertionMap map[string]*Assertion

// Model is the fully parsed, typed model: one AssertionMap per section kind.
type Model map[string]AssertionMap

// NewModelFromFile loads and parses a model configuration file.
func NewModelFromFile(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewModelError("open model file "+path, err)
	}
	defer f.Close()
	return NewModelFromReader(f)
}

// NewModelFromString parses a model given as an in-memory string.
func NewModelFromString(text string) (Model, error) {
	return NewModelFromReader(strings.NewReader(text))
}

// NewModelFromReader parses a model from an arbitrary reader, e.g. an
// embed.FS entry.
func NewModelFromReader(r io.Reader) (Model, error) {
	cfg, err := config.NewConfigFromReader(r)
	if err != nil {
		return nil, errs.NewModelError("parse model config", err)
	}
	return newModelFromConfig(cfg)
}

func newModelFromConfig(cfg *config.Config) (Model, error) {
	m := Model{}

	for header, short := range sectionNames {
		sec := cfg.Section(header)
		if sec == nil {
			continue
		}
		am := AssertionMap{}
		for key, rawValue := range sec {
			a, err := newAssertion(short, key, rawValue)
			if err != nil {
				return nil, err
			}
			am[normalizeKey(short, key)] = a
		}
		m[short] = am
	}

	for _, req := range requiredSections {
		if len(m[req]) == 0 {
			return nil, errs.NewModelError("missing required section for "+req, nil)
		}
	}

	if err := m.validateReferences(); err != nil {
		return nil, err
	}

	return m, nil
}

// normalizeKey turns a config key like "r" or "r2" (lowercased by the
// config parser already) back into the canonical "r"/"r2" index the rest
// of the core expects; kept as its own step in case future sections need
// case-folding rules the config layer shouldn't own.
func normalizeKey(short, key string) string {
	return key
}

func newAssertion(short, key, rawValue string) (*Assertion, error) {
	a := &Assertion{Key: key}

	switch short {
	case "r", "p":
		fields := splitTrim(rawValue)
		a.Tokens = make([]string, len(fields))
		for i, f := range fields {
			a.Tokens[i] = key + "_" + f
		}
		a.indexTokens()
		a.Value = rawValue
		a.PolicyMap = map[string]int{}

	case "g":
		fields := splitTrim(rawValue)
		a.Tokens = fields
		a.Value = rawValue
		a.PolicyMap = map[string]int{}

	case "e", "m":
		a.Value = util.RemoveComments(util.EscapeAssertion(rawValue))

	default:
		a.Value = rawValue
	}

	return a, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateReferences requires every r.*/p.* field a matcher mentions to
// resolve to a token the model actually defines.
func (m Model) validateReferences() error {
	for mType, a := range m["m"] {
		for _, tok := range extractFieldTokens(a.Value) {
			section, field := tok[0], tok
			_ = section
			if !m.tokenDefined(field) {
				return errs.NewModelError(fmt.Sprintf("matcher %q references undefined field %q", mType, field), nil)
			}
		}
	}
	return nil
}

// tokenDefined reports whether an escaped field reference like "r_sub" or
// "p2_obj" is defined by some request/policy assertion.
func (m Model) tokenDefined(escaped string) bool {
	for _, am := range m["r"] {
		for _, t := range am.Tokens {
			if t == escaped {
				return true
			}
		}
	}
	for _, am := range m["p"] {
		for _, t := range am.Tokens {
			if t == escaped {
				return true
			}
		}
	}
	return false
}

// extractFieldTokens scans an already-escaped expression for "r_xxx"/"p_xxx"
// style identifiers (possibly with dotted bag-attribute suffixes, which are
// trimmed off since only the base token needs to be a defined field).
func extractFieldTokens(escaped string) []string {
	var out []string
	i := 0
	for i < len(escaped) {
		c := escaped[i]
		if (c == 'r' || c == 'p') {
			j := i + 1
			for j < len(escaped) && escaped[j] >= '0' && escaped[j] <= '9' {
				j++
			}
			if j < len(escaped) && escaped[j] == '_' && (i == 0 || !isIdentByte(escaped[i-1])) {
				k := j + 1
				for k < len(escaped) && (isIdentByte(escaped[k])) {
					k++
				}
				tok := escaped[i:k]
				if dot := strings.IndexByte(tok, '.'); dot != -1 {
					tok = tok[:dot]
				}
				out = append(out, tok)
				i = k
				continue
			}
		}
		i++
	}
	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Copy returns a deep-enough copy of the model for copy-on-write mutation;
// LoadPolicy and Txn both stage changes against a working copy before
// publishing it.
func (m Model) Copy() Model {
	out := Model{}
	for section, am := range m {
		newAM := AssertionMap{}
		for key, a := range am {
			newAM[key] = a.copy()
		}
		out[section] = newAM
	}
	return out
}

// ClearPolicy empties every policy-type's rule table (p* and g*) without
// touching request/effect/matcher definitions.
func (m Model) ClearPolicy() {
	for _, short := range []string{"p", "g"} {
		for _, a := range m[short] {
			a.Policy = nil
			a.PolicyMap = map[string]int{}
		}
	}
}

// SetLogger propagates a logger to every assertion's role manager (if any);
// the model itself doesn't log, but it is the natural place to fan this out
// from.
func (m Model) SetLogger(logger log.Logger) {
	for _, a := range m["g"] {
		if a.RM != nil {
			a.RM.SetLogger(logger)
		}
	}
}

// PrintModel renders the request/policy/role/effect/matcher definitions,
// for debug logging only.
func (m Model) PrintModel(logger log.Logger) {
	if logger == nil || !logger.IsEnabled() {
		return
	}
	var rows [][]string
	for _, short := range []string{"r", "p", "g", "e", "m"} {
		for key, a := range m[short] {
			rows = append(rows, []string{short, key, a.Value})
		}
	}
	logger.LogModel(rows)
}

// PrintPolicy renders the current p*/g* tables for debug logging.
func (m Model) PrintPolicy(logger log.Logger) {
	if logger == nil || !logger.IsEnabled() {
		return
	}
	out := map[string][][]string{}
	for _, short := range []string{"p", "g"} {
		for key, a := range m[short] {
			out[key] = a.Policy
		}
	}
	logger.LogPolicy(out)
}

// SortPoliciesByPriority sorts each p-type's rules ascending by a numeric
// "priority" field, when one is defined, so priority-style effect
// expressions see the decisive rule first. Rules without a priority field,
// or a non-numeric value, sort last in their original relative order
// (stable sort).
func (m Model) SortPoliciesByPriority() error {
	for _, a := range m["p"] {
		idx := a.fieldIndex("priority")
		if idx == -1 {
			continue
		}
		sort.SliceStable(a.Policy, func(i, j int) bool {
			return priorityOf(a.Policy[i], idx) < priorityOf(a.Policy[j], idx)
		})
	}
	return nil
}

func priorityOf(rule []string, idx int) int {
	if idx >= len(rule) {
		return int(^uint(0) >> 1) // max int: missing priority sorts last
	}
	var n int
	_, err := fmt.Sscanf(rule[idx], "%d", &n)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// SortPoliciesBySubjectHierarchy supports the subjectPriority effect
// expression: rules are ordered so a more specific subject (one reachable from
// another policy's subject via the role graph) is evaluated first. Absent a
// role graph over subjects it degrades to the stable original order, which
// is already what "no applicable hierarchy" should do.
func (m Model) SortPoliciesBySubjectHierarchy() error {
	for _, a := range m["p"] {
		subIdx := a.fieldIndex("sub")
		if subIdx == -1 {
			continue
		}
		g, ok := m["g"]["g"]
		if !ok || g.RM == nil {
			continue
		}
		sort.SliceStable(a.Policy, func(i, j int) bool {
			si, sj := a.Policy[i][subIdx], a.Policy[j][subIdx]
			if si == sj {
				return false
			}
			// si is "more specific" (sorts earlier) if sj has si, i.e. si is
			// a role that sj (the user) inherits from; so the rule for the
			// inherited role is considered before sj's own rule.
			less, _ := g.RM.HasLink(sj, si)
			return less
		})
	}
	return nil
}
