// Copyright 2017 The casbin Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package polyauthz implements a general-purpose, Casbin-compatible
// authorization core: model/config parsing, the matcher expression engine,
// the built-in function library, role-graph resolution, effect
// aggregation, the in-memory policy store, and the enforcer itself, along
// with its functional/synced/cached/distributed variants and the
// management/RBAC convenience APIs built on top.
package polyauthz

import (
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/tidwall/gjson"

	"github.com/polyauthz/core/effector"
	"github.com/polyauthz/core/errs"
	"github.com/polyauthz/core/log"
	"github.com/polyauthz/core/model"
	"github.com/polyauthz/core/persist"
	"github.com/polyauthz/core/persist/fileadapter"
	"github.com/polyauthz/core/rbac"
	"github.com/polyauthz/core/rbac/defaultrolemanager"
	"github.com/polyauthz/core/util"
)

// CoreEnforcer is the single-threaded enforcement engine: a loaded model,
// its policy store, a role manager per grouping-type, an effector, and the
// storage/notification ports it consults. SyncedEnforcer, CachedEnforcer
// and DistributedEnforcer wrap this type rather than reimplementing it.
type CoreEnforcer struct {
	modelPath string
	model     model.Model
	fm        model.FunctionMap
	eft       effector.Effector

	adapter    persist.Adapter
	watcher    persist.Watcher
	dispatcher persist.Dispatcher
	rmMap      map[string]rbac.RoleManager
	matcherMap sync.Map

	enabled              bool
	autoSave             bool
	autoBuildRoleLinks   bool
	autoNotifyWatcher    bool
	autoNotifyDispatcher bool
	acceptJSONRequest    bool

	logger log.Logger
}

// EnforceContext selects which request/policy/effect/matcher section an
// Enforce call should use, for models that declare more than one of each
// (the "r2", "p2", ... suffix convention). Pass it as the first element of
// rvals.
type EnforceContext struct {
	RType string
	PType string
	EType string
	MType string
}

// NewEnforceContext builds an EnforceContext selecting the section with
// the given numeric suffix, e.g. NewEnforceContext("2") selects r2/p2/e2/m2.
func NewEnforceContext(suffix string) EnforceContext {
	return EnforceContext{
		RType: "r" + suffix,
		PType: "p" + suffix,
		EType: "e" + suffix,
		MType: "m" + suffix,
	}
}

// GetCacheKey returns a stable string identifying this context, used as
// part of the cached enforcer's request key so the same request tuple
// evaluated under different sections doesn't collide.
func (c EnforceContext) GetCacheKey() string {
	return "EnforceContext{" + c.RType + "-" + c.PType + "-" + c.EType + "-" + c.MType + "}"
}

// NewEnforcer builds a CoreEnforcer from a variable parameter list,
// following the overload conventions every Casbin-family binding exposes:
//
//	NewEnforcer("model.conf", "policy.csv")
//	NewEnforcer("model.conf", someAdapter)
//	NewEnforcer(someModel, someAdapter)
//	NewEnforcer("model.conf")
//	NewEnforcer(someModel)
//
// An optional trailing bool enables logging, and an optional log.Logger
// before that overrides the default logger.
func NewEnforcer(params ...interface{}) (*CoreEnforcer, error) {
	e := &CoreEnforcer{logger: &log.DefaultLogger{}}

	parsed := 0
	n := len(params)
	if n >= 1 {
		if enable, ok := params[n-1].(bool); ok {
			e.EnableLog(enable)
			parsed++
		}
	}
	if n-parsed >= 1 {
		if logger, ok := params[n-parsed-1].(log.Logger); ok {
			e.logger = logger
			parsed++
		}
	}

	switch n - parsed {
	case 0:
		return e, nil
	case 1:
		switch p0 := params[0].(type) {
		case string:
			if err := e.InitWithFile(p0, ""); err != nil {
				return nil, err
			}
		case model.Model:
			if err := e.InitWithModelAndAdapter(p0, nil); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("invalid parameters for enforcer")
		}
	case 2:
		p0, p1 := params[0], params[1]
		switch t0 := p0.(type) {
		case string:
			switch t1 := p1.(type) {
			case string:
				if err := e.InitWithFile(t0, t1); err != nil {
					return nil, err
				}
			case persist.Adapter:
				if err := e.InitWithAdapter(t0, t1); err != nil {
					return nil, err
				}
			default:
				return nil, errors.New("invalid parameters for enforcer")
			}
		case model.Model:
			adapter, _ := p1.(persist.Adapter)
			if err := e.InitWithModelAndAdapter(t0, adapter); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("invalid parameters for enforcer")
		}
	default:
		return nil, errors.New("invalid parameters for enforcer")
	}

	return e, nil
}

// InitWithFile initializes an enforcer with a model file and a policy CSV
// file, using the bundled fileadapter.
func (e *CoreEnforcer) InitWithFile(modelPath string, policyPath string) error {
	return e.InitWithAdapter(modelPath, fileadapter.NewAdapter(policyPath))
}

// InitWithAdapter initializes an enforcer with a model file and an
// arbitrary storage adapter.
func (e *CoreEnforcer) InitWithAdapter(modelPath string, adapter persist.Adapter) error {
	m, err := model.NewModelFromFile(modelPath)
	if err != nil {
		return err
	}
	if err := e.InitWithModelAndAdapter(m, adapter); err != nil {
		return err
	}
	e.modelPath = modelPath
	return nil
}

// InitWithModelAndAdapter initializes an enforcer with an already-parsed
// model and a storage adapter (nil is valid: no persistence until one is
// set with SetAdapter).
func (e *CoreEnforcer) InitWithModelAndAdapter(m model.Model, adapter persist.Adapter) error {
	e.adapter = adapter
	e.model = m
	m.SetLogger(e.logger)
	e.model.PrintModel(e.logger)
	e.fm = model.LoadFunctionMap()

	e.initialize()

	if fa, ok := e.adapter.(persist.FilteredAdapter); e.adapter != nil && (!ok || !fa.IsFiltered()) {
		if err := e.LoadPolicy(); err != nil {
			return err
		}
	}
	return nil
}

func (e *CoreEnforcer) initialize() {
	e.rmMap = map[string]rbac.RoleManager{}
	e.eft = effector.NewDefaultEffector()
	e.watcher = nil
	e.matcherMap = sync.Map{}

	e.enabled = true
	e.autoSave = true
	e.autoBuildRoleLinks = true
	e.autoNotifyWatcher = true
	e.autoNotifyDispatcher = true
	e.initRmMap()
}

func (e *CoreEnforcer) initRmMap() {
	for ptype := range e.model["g"] {
		if rm, ok := e.rmMap[ptype]; ok {
			_ = rm.Clear()
			continue
		}
		rm := defaultrolemanager.NewRoleManager(10)
		e.rmMap[ptype] = rm
		if a, ok := e.model["m"]["m"]; ok && strings.Contains(a.Value, "keyMatch(r_dom, p_dom)") {
			e.AddNamedDomainMatchingFunc(ptype, "g", util.KeyMatch)
		}
	}
}

// SetLogger changes the enforcer's logger, propagating it to the model
// and every role manager.
func (e *CoreEnforcer) SetLogger(logger log.Logger) {
	e.logger = logger
	e.model.SetLogger(logger)
	for _, rm := range e.rmMap {
		rm.SetLogger(logger)
	}
}

// LoadModel reloads the model from modelPath. The policy is invalidated;
// call LoadPolicy afterward.
func (e *CoreEnforcer) LoadModel() error {
	m, err := model.NewModelFromFile(e.modelPath)
	if err != nil {
		return err
	}
	e.model = m
	e.model.SetLogger(e.logger)
	e.model.PrintModel(e.logger)
	e.fm = model.LoadFunctionMap()
	e.initialize()
	return nil
}

// GetModel returns the current model.
func (e *CoreEnforcer) GetModel() model.Model { return e.model }

// SetModel replaces the current model, invalidating cached matchers and
// role graphs.
func (e *CoreEnforcer) SetModel(m model.Model) {
	e.model = m
	e.fm = model.LoadFunctionMap()
	e.model.SetLogger(e.logger)
	e.initialize()
}

// GetAdapter returns the current storage adapter.
func (e *CoreEnforcer) GetAdapter() persist.Adapter { return e.adapter }

// SetAdapter sets the storage adapter.
func (e *CoreEnforcer) SetAdapter(adapter persist.Adapter) { e.adapter = adapter }

// SetWatcher sets the change-notification watcher and, unless it is a
// WatcherEx (which drives its own fine-grained callbacks), wires its
// generic callback to a full LoadPolicy.
func (e *CoreEnforcer) SetWatcher(watcher persist.Watcher) error {
	e.watcher = watcher
	if _, ok := watcher.(persist.WatcherEx); ok {
		return nil
	}
	return watcher.SetUpdateCallback(func(string) { _ = e.LoadPolicy() })
}

// GetDispatcher returns the current dispatcher, if any.
func (e *CoreEnforcer) GetDispatcher() persist.Dispatcher { return e.dispatcher }

// SetDispatcher sets the dispatcher a DistributedEnforcer forwards
// mutations to.
func (e *CoreEnforcer) SetDispatcher(dispatcher persist.Dispatcher) { e.dispatcher = dispatcher }

// GetRoleManager returns the role manager for the default "g" grouping type.
func (e *CoreEnforcer) GetRoleManager() rbac.RoleManager { return e.rmMap["g"] }

// GetNamedRoleManager returns the role manager for the given grouping type.
func (e *CoreEnforcer) GetNamedRoleManager(ptype string) rbac.RoleManager { return e.rmMap[ptype] }

// SetRoleManager replaces the "g" role manager.
func (e *CoreEnforcer) SetRoleManager(rm rbac.RoleManager) {
	e.invalidateMatcherMap()
	e.rmMap["g"] = rm
}

// SetNamedRoleManager replaces the role manager for the given grouping type.
func (e *CoreEnforcer) SetNamedRoleManager(ptype string, rm rbac.RoleManager) {
	e.invalidateMatcherMap()
	e.rmMap[ptype] = rm
}

// SetEffector replaces the policy_effect aggregator.
func (e *CoreEnforcer) SetEffector(eft effector.Effector) { e.eft = eft }

// ClearPolicy empties the policy store, routing through the dispatcher
// when one is attached and auto-notify is on.
func (e *CoreEnforcer) ClearPolicy() {
	e.invalidateMatcherMap()
	if e.dispatcher != nil && e.autoNotifyDispatcher {
		_ = e.dispatcher.ClearPolicy()
		return
	}
	e.model.ClearPolicy()
}

// LoadPolicy reloads the full policy set from the adapter into a fresh
// model copy, re-sorts for priority/subjectPriority effects, and rebuilds
// every role graph, swapping the new model in only once all of that
// succeeds, so a failed load leaves the previous policy view intact.
func (e *CoreEnforcer) LoadPolicy() error {
	if e.adapter == nil {
		return errs.ErrAdapterNotSet
	}
	e.invalidateMatcherMap()

	newModel := e.model.Copy()
	newModel.ClearPolicy()

	if err := e.adapter.LoadPolicy(newModel); err != nil {
		return err
	}
	if err := newModel.SortPoliciesBySubjectHierarchy(); err != nil {
		return err
	}
	if err := newModel.SortPoliciesByPriority(); err != nil {
		return err
	}

	if e.autoBuildRoleLinks {
		for _, rm := range e.rmMap {
			if err := rm.Clear(); err != nil {
				return err
			}
		}
		if err := newModel.BuildRoleLinks(e.rmMap); err != nil {
			return err
		}
	}
	e.model = newModel
	return nil
}

func (e *CoreEnforcer) loadFilteredPolicy(filter interface{}, incremental bool) error {
	e.invalidateMatcherMap()

	fa, ok := e.adapter.(persist.FilteredAdapter)
	if !ok {
		return fmt.Errorf("%w: filtered policy load", errs.ErrUnsupportedOperation)
	}
	if !incremental {
		e.model.ClearPolicy()
	}

	if ifa, ok := fa.(persist.IncrementalFilteredAdapter); incremental && ok {
		if err := ifa.LoadIncrementalFilteredPolicy(e.model, filter); err != nil {
			return err
		}
	} else if err := fa.LoadFilteredPolicy(e.model, filter); err != nil {
		return err
	}

	if err := e.model.SortPoliciesBySubjectHierarchy(); err != nil {
		return err
	}
	if err := e.model.SortPoliciesByPriority(); err != nil {
		return err
	}

	e.initRmMap()
	e.model.PrintPolicy(e.logger)
	if e.autoBuildRoleLinks {
		return e.BuildRoleLinks()
	}
	return nil
}

// LoadFilteredPolicy clears the policy store and loads only the subset
// matching filter; requires an adapter that supports filtered loads.
func (e *CoreEnforcer) LoadFilteredPolicy(filter interface{}) error {
	return e.loadFilteredPolicy(filter, false)
}

// LoadIncrementalFilteredPolicy appends another filtered slice onto an
// already (possibly filtered) loaded policy store.
func (e *CoreEnforcer) LoadIncrementalFilteredPolicy(filter interface{}) error {
	return e.loadFilteredPolicy(filter, true)
}

// IsFiltered reports whether the current adapter reports a filtered load.
func (e *CoreEnforcer) IsFiltered() bool {
	fa, ok := e.adapter.(persist.FilteredAdapter)
	return ok && fa.IsFiltered()
}

// SavePolicy persists the full policy store back through the adapter and
// notifies the watcher.
func (e *CoreEnforcer) SavePolicy() error {
	if e.adapter == nil {
		return errs.ErrAdapterNotSet
	}
	if e.IsFiltered() {
		return errs.ErrFilteredPolicy
	}
	if err := e.adapter.SavePolicy(e.model); err != nil {
		return err
	}
	if e.watcher == nil {
		return nil
	}
	if wex, ok := e.watcher.(persist.WatcherEx); ok {
		return wex.UpdateForSavePolicy(e.model)
	}
	return e.watcher.Update()
}

// EnableEnforce turns access control on or off; while disabled every
// Enforce call returns true unconditionally.
func (e *CoreEnforcer) EnableEnforce(enable bool) { e.enabled = enable }

// EnableLog turns enforcement/model/policy logging on or off.
func (e *CoreEnforcer) EnableLog(enable bool) { e.logger.EnableLog(enable) }

// IsLogEnabled reports whether logging is currently enabled.
func (e *CoreEnforcer) IsLogEnabled() bool { return e.logger.IsEnabled() }

// EnableAutoNotifyWatcher turns automatic watcher notification on mutation
// on or off.
func (e *CoreEnforcer) EnableAutoNotifyWatcher(enable bool) { e.autoNotifyWatcher = enable }

// EnableAutoNotifyDispatcher turns automatic dispatcher forwarding on
// mutation on or off.
func (e *CoreEnforcer) EnableAutoNotifyDispatcher(enable bool) { e.autoNotifyDispatcher = enable }

// EnableAutoSave turns automatic adapter persistence on mutation on or off.
func (e *CoreEnforcer) EnableAutoSave(enable bool) { e.autoSave = enable }

// EnableAutoBuildRoleLinks turns automatic role-graph rebuilding on policy
// load on or off.
func (e *CoreEnforcer) EnableAutoBuildRoleLinks(enable bool) { e.autoBuildRoleLinks = enable }

// EnableAcceptJSONRequest turns JSON-string attribute-bag substitution on
// or off.
func (e *CoreEnforcer) EnableAcceptJSONRequest(enable bool) { e.acceptJSONRequest = enable }

// BuildRoleLinks rebuilds every role manager's graph from the currently
// loaded g*/g2*/... policy tables.
func (e *CoreEnforcer) BuildRoleLinks() error {
	for _, rm := range e.rmMap {
		if err := rm.Clear(); err != nil {
			return err
		}
	}
	return e.model.BuildRoleLinks(e.rmMap)
}

// BuildIncrementalRoleLinks applies a single add/remove batch of grouping
// rules to the named role manager without a full rebuild.
func (e *CoreEnforcer) BuildIncrementalRoleLinks(op model.PolicyOp, ptype string, rules [][]string) error {
	return e.model.BuildIncrementalRoleLinks(e.rmMap, op, "g", ptype, rules)
}

func (e *CoreEnforcer) invalidateMatcherMap() {
	e.matcherMap = sync.Map{}
}

// AddFunction registers (or overrides) a custom matcher-callable function
// so model matchers can invoke it by name.
func (e *CoreEnforcer) AddFunction(name string, fn govaluate.ExpressionFunction) {
	e.fm.AddFunction(name, fn)
}

// AddNamedMatchingFunc installs a role-name MatchingFunc on the role
// manager for ptype, creating a default role manager for ptype if it has
// none yet.
func (e *CoreEnforcer) AddNamedMatchingFunc(ptype, name string, fn rbac.MatchingFunc) bool {
	rm, ok := e.rmMap[ptype]
	if !ok {
		rm = defaultrolemanager.NewRoleManager(10)
		e.rmMap[ptype] = rm
	}
	return rm.AddMatchingFunc(name, fn)
}

// AddNamedDomainMatchingFunc installs a domain MatchingFunc on the role
// manager for ptype.
func (e *CoreEnforcer) AddNamedDomainMatchingFunc(ptype, name string, fn rbac.MatchingFunc) bool {
	if rm, ok := e.rmMap[ptype]; ok {
		return rm.AddDomainMatchingFunc(name, fn)
	}
	return false
}

// jsonPathRe matches an escaped request-field reference followed by a
// dotted path ("r_sub.Age", "r2_obj.Owner.Name"), the shape a matcher or
// policy value uses to read into a JSON-encoded request value.
var jsonPathRe = regexp.MustCompile(`\br[0-9]*_[A-Za-z0-9_]+\.[A-Za-z0-9_][A-Za-z0-9_.]*`)

// expandJSONPaths rewrites each such reference in s with the literal value
// found by walking the dotted path into the JSON document carried by that
// request field, so matchers can read into JSON-encoded request attributes
// without the expression engine parsing JSON itself. References that don't
// name a request field holding a string are left untouched.
func expandJSONPaths(s string, rDef *model.Assertion, req []interface{}) string {
	return jsonPathRe.ReplaceAllStringFunc(s, func(ref string) string {
		dot := strings.IndexByte(ref, '.')
		i, ok := rDef.ParamIndex(ref[:dot])
		if !ok {
			return ref
		}
		doc, ok := req[i].(string)
		if !ok {
			return ref
		}
		v := gjson.Get(doc, ref[dot+1:]).String()
		if util.IsNumeric(v) {
			return v
		}
		return `"` + v + `"`
	})
}

// evalEnv is the variable environment one enforce call evaluates matchers
// against: the request tuple bound to the request definition's fields and,
// while iterating, the current policy rule bound to the policy
// definition's fields. Dotted suffixes on request values ("r_obj.Owner")
// are resolved by govaluate's own accessor reflection once Get returns the
// base value, which is what lets matchers read native attribute bags.
type evalEnv struct {
	rDef *model.Assertion
	pDef *model.Assertion
	req  []interface{}
	rule []string
}

func (env *evalEnv) Get(name string) (interface{}, error) {
	if i, ok := env.rDef.ParamIndex(name); ok {
		return env.req[i], nil
	}
	if i, ok := env.pDef.ParamIndex(name); ok {
		if i < len(env.rule) {
			return env.rule[i], nil
		}
		return "", nil
	}
	return nil, fmt.Errorf("no parameter %q found", name)
}

// bind points the environment at one policy rule. In JSON-request mode the
// rule's values may themselves hold r_<field>.<path> references, so each
// is escaped and expanded against the request before binding.
func (env *evalEnv) bind(rule []string, jsonMode bool) {
	if !jsonMode {
		env.rule = rule
		return
	}
	expanded := make([]string, len(rule))
	for i, v := range rule {
		expanded[i] = expandJSONPaths(util.EscapeAssertion(v), env.rDef, env.req)
	}
	env.rule = expanded
}

// matcherFunctions assembles the callable registry for one enforce call:
// the model's function map, one grouping function per role definition
// (answered by that grouping's role graph), and, when the matcher uses
// eval(), a sub-rule evaluator closed over the same environment.
func (e *CoreEnforcer) matcherFunctions(env *evalEnv, withEval bool) map[string]govaluate.ExpressionFunction {
	funcs := e.fm.GetFunctions()
	for key, a := range e.model["g"] {
		funcs[key] = util.GenerateGFunction(a.RM)
	}
	if withEval {
		funcs["eval"] = subruleEvaluator(funcs, env)
	}
	return funcs
}

// subruleEvaluator implements eval(): its argument is policy data holding
// a further matcher fragment, compiled fresh on every call since the text
// is not known until a rule is bound.
func subruleEvaluator(funcs map[string]govaluate.ExpressionFunction, env *evalEnv) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("eval() expects one argument, got %d", len(args))
		}
		fragment, ok := args[0].(string)
		if !ok {
			return nil, errors.New("eval() expects a string argument")
		}
		sub, err := govaluate.NewEvaluableExpressionWithFunctions(util.EscapeAssertion(fragment), funcs)
		if err != nil {
			return nil, fmt.Errorf("eval(%q): %w", fragment, err)
		}
		return sub.Eval(env)
	}
}

// compiledMatcher returns the compiled form of exp, consulting the
// per-model cache unless the expression embeds eval(), whose function
// binding is call-specific and must not be shared.
func (e *CoreEnforcer) compiledMatcher(exp string, funcs map[string]govaluate.ExpressionFunction, cacheable bool) (*govaluate.EvaluableExpression, error) {
	if cacheable {
		if hit, ok := e.matcherMap.Load(exp); ok {
			return hit.(*govaluate.EvaluableExpression), nil
		}
	}
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(exp, funcs)
	if err != nil || !cacheable {
		return compiled, err
	}
	e.matcherMap.Store(exp, compiled)
	return compiled, nil
}

// resolveSections looks up the request and policy assertions plus the
// effect and matcher expressions an enforce call runs against, by the
// section names in ctx.
func (e *CoreEnforcer) resolveSections(ctx EnforceContext) (rDef, pDef *model.Assertion, effectExpr, matcherExpr string, err error) {
	rDef = e.model["r"][ctx.RType]
	pDef = e.model["p"][ctx.PType]
	eDef := e.model["e"][ctx.EType]
	mDef := e.model["m"][ctx.MType]
	switch {
	case rDef == nil:
		err = fmt.Errorf("enforcer: undefined request section %q", ctx.RType)
	case pDef == nil:
		err = fmt.Errorf("enforcer: undefined policy section %q", ctx.PType)
	case eDef == nil:
		err = fmt.Errorf("enforcer: undefined effect section %q", ctx.EType)
	case mDef == nil:
		err = fmt.Errorf("enforcer: undefined matcher section %q", ctx.MType)
	default:
		effectExpr, matcherExpr = eDef.Value, mDef.Value
	}
	return
}

// ruleEffect classifies one evaluated rule: a false matcher leaves it
// indeterminate; a true matcher contributes the rule's effect token.
func ruleEffect(pDef *model.Assertion, rule []string, matched bool) effector.Effect {
	if !matched {
		return effector.Indeterminate
	}
	switch pDef.EffectValue(rule) {
	case "allow":
		return effector.Allow
	case "deny":
		return effector.Deny
	default:
		return effector.Indeterminate
	}
}

// evalMatcher runs the compiled matcher against env. A numeric result is
// read as a truth value, so arithmetic matchers work without an explicit
// comparison.
func evalMatcher(expr *govaluate.EvaluableExpression, env *evalEnv) (bool, error) {
	raw, err := expr.Eval(env)
	if err != nil {
		return false, err
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	default:
		return false, errors.New("matcher result should be bool, int or float")
	}
}

// enforce is the decision algorithm behind every Enforce* method. It
// resolves the sections named by an optional leading EnforceContext,
// compiles (or fetches) the matcher, streams one outcome per policy rule
// into the effector until the decision is settled, and reports the
// deciding rule when the caller asked for an explanation. When the matcher
// reads no policy fields (or no rules are installed) it is evaluated once
// against the request alone, which is how attribute-only models decide
// without policy rules.
func (e *CoreEnforcer) enforce(matcher string, explains *[]string, rvals ...interface{}) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	if !e.enabled {
		return true, nil
	}

	ctx := EnforceContext{RType: "r", PType: "p", EType: "e", MType: "m"}
	if len(rvals) > 0 {
		if c, ok := rvals[0].(EnforceContext); ok {
			ctx = c
			rvals = rvals[1:]
		}
	}

	rDef, pDef, effectExpr, expString, err := e.resolveSections(ctx)
	if err != nil {
		return false, err
	}
	if matcher != "" {
		expString = util.RemoveComments(util.EscapeAssertion(matcher))
	}
	if len(rvals) != len(rDef.Tokens) {
		return false, fmt.Errorf("invalid request size: expected %d, got %d: %v", len(rDef.Tokens), len(rvals), rvals)
	}
	if e.acceptJSONRequest {
		expString = expandJSONPaths(expString, rDef, rvals)
	}

	env := &evalEnv{rDef: rDef, pDef: pDef, req: rvals}
	withEval := util.HasEval(expString)
	expression, err := e.compiledMatcher(expString, e.matcherFunctions(env, withEval), !withEval)
	if err != nil {
		return false, err
	}

	stream, err := e.eft.NewStream(effectExpr, len(pDef.Policy))
	if err != nil {
		return false, err
	}

	switch {
	case len(pDef.Policy) > 0 && pDef.MentionedIn(expString):
		for _, rule := range pDef.Policy {
			if len(rule) != len(pDef.Tokens) {
				return false, fmt.Errorf("invalid policy size: expected %d, got %d: %v", len(pDef.Tokens), len(rule), rule)
			}
			env.bind(rule, e.acceptJSONRequest)

			matched, evalErr := evalMatcher(expression, env)
			if evalErr != nil {
				// A failure scoped to one rule is recovered as a non-match
				// rather than surfaced; partial attribute bags can coexist
				// with policies that reference optional fields.
				e.logger.LogError(fmt.Errorf("%w: %v", errs.ErrEvaluation, evalErr), "rule", fmt.Sprint(rule))
				matched = false
			}
			if stream.Push(ruleEffect(pDef, env.rule, matched)) {
				break
			}
		}

	case withEval && len(pDef.Policy) == 0:
		return false, errors.New("please make sure rule exists in policy when using eval() in matcher")

	default:
		env.bind(make([]string, len(pDef.Tokens)), false)
		matched, evalErr := evalMatcher(expression, env)
		if evalErr != nil {
			return false, evalErr
		}
		if matched {
			stream.Push(effector.Allow)
		} else {
			stream.Push(effector.Indeterminate)
		}
	}

	result = stream.Decision()

	var logExplains [][]string
	if idx := stream.DecidedBy(); idx >= 0 && idx < len(pDef.Policy) {
		if explains != nil {
			*explains = pDef.Policy[idx]
		}
		logExplains = append(logExplains, pDef.Policy[idx])
	}
	e.logger.LogEnforce(expString, rvals, result, logExplains)
	return result, nil
}

// Enforce decides whether a subject can perform an action on an object,
// using the model's declared matcher.
func (e *CoreEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	return e.enforce("", nil, rvals...)
}

// EnforceWithMatcher decides using an ad-hoc matcher expression instead of
// the model's declared one.
func (e *CoreEnforcer) EnforceWithMatcher(matcher string, rvals ...interface{}) (bool, error) {
	return e.enforce(matcher, nil, rvals...)
}

// EnforceEx decides and additionally returns the policy rule that decided
// the outcome, when one did.
func (e *CoreEnforcer) EnforceEx(rvals ...interface{}) (bool, []string, error) {
	explain := []string{}
	ok, err := e.enforce("", &explain, rvals...)
	return ok, explain, err
}

// EnforceExWithMatcher combines EnforceWithMatcher and EnforceEx.
func (e *CoreEnforcer) EnforceExWithMatcher(matcher string, rvals ...interface{}) (bool, []string, error) {
	explain := []string{}
	ok, err := e.enforce(matcher, &explain, rvals...)
	return ok, explain, err
}

// BatchEnforce decides a slice of requests, in order, stopping at the
// first error.
func (e *CoreEnforcer) BatchEnforce(requests [][]interface{}) ([]bool, error) {
	results := make([]bool, 0, len(requests))
	for _, req := range requests {
		ok, err := e.enforce("", nil, req...)
		if err != nil {
			return results, err
		}
		results = append(results, ok)
	}
	return results, nil
}

// BatchEnforceWithMatcher is BatchEnforce with an ad-hoc matcher.
func (e *CoreEnforcer) BatchEnforceWithMatcher(matcher string, requests [][]interface{}) ([]bool, error) {
	results := make([]bool, 0, len(requests))
	for _, req := range requests {
		ok, err := e.enforce(matcher, nil, req...)
		if err != nil {
			return results, err
		}
		results = append(results, ok)
	}
	return results, nil
}
