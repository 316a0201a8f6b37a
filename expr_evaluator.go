package store

import (
	"fmt"
	"sort"

	exprlang "github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache shares compiled expr programs through cache.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) { e.useCache(cache) }
}

// ExprWithFunctionRegistry exposes the registry helpers as expr functions and
// through call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) { e.useRegistry(registry) }
}

type exprEvaluator struct {
	engineConfig
}

// exprSelectorProgram is a compiled expression plus the state keys it names.
// Only those keys are read from the view when it runs.
type exprSelectorProgram struct {
	program *exprvm.Program
	keys    []string
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. It is the
// default engine for expression selectors. State keys are top level
// identifiers: `counter.value * 2` reads field value of slice counter.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) engineName() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	compiled, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, compiled)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	compiled, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{evaluator: e, compiled: compiled, expression: expression}, nil
}

func (e *exprEvaluator) compile(expression string) (*exprSelectorProgram, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	cacheKey := "expr:" + expression
	if cached, ok := e.cached(cacheKey); ok {
		if compiled, ok := cached.(*exprSelectorProgram); ok {
			return compiled, nil
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	helpers := map[string]struct{}{}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			helpers[name] = struct{}{}
			options = append(options, exprlang.Function(name, e.helper(name)))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}

	compiled := &exprSelectorProgram{
		program: program,
		keys:    referencedKeys(program.Node(), helpers),
	}
	e.remember(cacheKey, compiled)
	return compiled, nil
}

func (e *exprEvaluator) run(ctx RuleContext, expression string, compiled *exprSelectorProgram) (any, error) {
	ctx = ctx.withDefaults()
	env := map[string]any{
		bindingNow:  ctx.timestamp(),
		bindingArgs: ctx.Args,
	}
	for _, key := range compiled.keys {
		if fields, ok := ctx.slice(key); ok {
			env[key] = fields
		}
	}
	if e.registry != nil {
		env[bindingCall] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}

	result, err := exprlang.Run(compiled.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	return result, nil
}

func (e *exprEvaluator) helper(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	compiled   *exprSelectorProgram
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil || r.compiled == nil {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("compiled rule missing program"))
	}
	return r.evaluator.run(ctx, r.expression, r.compiled)
}

// keyCollector gathers identifiers that may name a state slice.
type keyCollector struct {
	skip map[string]struct{}
	seen map[string]struct{}
}

func (c *keyCollector) Visit(node *exprast.Node) {
	ident, ok := (*node).(*exprast.IdentifierNode)
	if !ok || reservedBinding(ident.Value) {
		return
	}
	if _, ok := c.skip[ident.Value]; ok {
		return
	}
	c.seen[ident.Value] = struct{}{}
}

func referencedKeys(root exprast.Node, helpers map[string]struct{}) []string {
	if root == nil {
		return nil
	}
	collector := &keyCollector{skip: helpers, seen: map[string]struct{}{}}
	exprast.Walk(&root, collector)
	keys := make([]string, 0, len(collector.seen))
	for key := range collector.seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
