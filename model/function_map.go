package model

import (
	"github.com/Knetic/govaluate"

	"github.com/polyauthz/core/util"
)

// FunctionMap is the registry of matcher-callable functions: the built-ins
// plus any user-supplied function_map entries.
// Kept as govaluate.ExpressionFunction values directly since that is the
// signature the expression engine ultimately needs (see the root package's
// use of govaluate.NewEvaluableExpressionWithFunctions).
type FunctionMap map[string]govaluate.ExpressionFunction

// LoadFunctionMap returns a fresh map pre-populated with every built-in:
// the keyMatch family, regexMatch, globMatch, ipMatch, the keyGet family,
// and timeMatch.
func LoadFunctionMap() FunctionMap {
	return FunctionMap{
		"keyMatch":   util.KeyMatchFunc,
		"keyMatch2":  util.KeyMatch2Func,
		"keyMatch3":  util.KeyMatch3Func,
		"keyMatch4":  util.KeyMatch4Func,
		"keyMatch5":  util.KeyMatch5Func,
		"regexMatch": util.RegexMatchFunc,
		"globMatch":  util.GlobMatchFunc,
		"ipMatch":    util.IPMatchFunc,
		"keyGet":     util.KeyGetFunc,
		"keyGet2":    util.KeyGet2Func,
		"keyGet3":    util.KeyGet3Func,
		"timeMatch":  util.TimeMatchFunc,
	}
}

// AddFunction registers (or overrides) one matcher-callable function.
func (fm FunctionMap) AddFunction(name string, fn govaluate.ExpressionFunction) {
	fm[name] = fn
}

// GetFunctions returns a copy of the registry, so callers (the enforcer,
// once per Enforce call) can layer in per-call g()/eval() entries without
// mutating the model's own map.
func (fm FunctionMap) GetFunctions() map[string]govaluate.ExpressionFunction {
	out := make(map[string]govaluate.ExpressionFunction, len(fm))
	for k, v := range fm {
		out[k] = v
	}
	return out
}
