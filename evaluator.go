package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrNoEvaluator = errors.New("store: evaluator not configured")

// RuleContext carries the inputs an expression selector evaluates against.
type RuleContext struct {
	// View is the state the expression reads. Engines fetch a key from it only
	// when the expression names that key, so a projection tracks just those.
	View     View
	Now      *time.Time
	Args     map[string]any
	Selector string
}

// Names bound by every engine. State keys with these names are not visible to
// expressions.
const (
	bindingNow  = "now"
	bindingArgs = "args"
	bindingCall = "call"
)

func reservedBinding(name string) bool {
	return name == bindingNow || name == bindingArgs || name == bindingCall
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// slice returns the fields of the sub-state stored under key.
func (ctx RuleContext) slice(key string) (map[string]any, bool) {
	if ctx.View == nil || reservedBinding(key) {
		return nil, false
	}
	sub := ctx.View.Get(key)
	if sub == nil {
		return nil, false
	}
	return sub.Values(), true
}

// keys lists the state keys without reading their values.
func (ctx RuleContext) keys() []string {
	if ctx.View == nil {
		return nil
	}
	keys := make([]string, 0)
	for _, key := range ctx.View.Keys() {
		if !reservedBinding(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (ctx RuleContext) label() string {
	if ctx.Selector != "" {
		return ctx.Selector
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EvaluatorFor returns the evaluator registered for engine ("expr", "cel" or
// "js"). An empty engine selects expr.
func EvaluatorFor(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	var evaluator Evaluator
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "expr":
		evaluator = NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry))
	case "cel":
		evaluator = NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
	case "js":
		evaluator = NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
	default:
		return nil, fmt.Errorf("store: unknown evaluator engine %q", engine)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEvaluator, engine)
	}
	return evaluator, nil
}

// namedEngine is implemented by the built-in evaluators.
type namedEngine interface {
	engineName() string
}

func evaluatorEngineName(e Evaluator) string {
	switch typed := e.(type) {
	case nil:
		return "unknown"
	case namedEngine:
		return typed.engineName()
	default:
		return "custom"
	}
}
