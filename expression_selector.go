package store

import (
	"fmt"
	"sort"
)

// ExpressionSelector compiles expr with evaluator and returns a Selector that
// evaluates it against the view. Each state key is bound to its sub-state
// fields, so `counter.value * 2` reads field value of key counter. A key is
// read from the view only when the expression uses it, which keeps projection
// selectors independent of slices they never mention.
func ExpressionSelector(evaluator Evaluator, expr string) (Selector, error) {
	return expressionSelector(evaluator, "", expr)
}

// ExprSelector is ExpressionSelector with a default expr-lang evaluator.
func ExprSelector(expr string) (Selector, error) {
	return ExpressionSelector(NewExprEvaluator(), expr)
}

// CELSelector is ExpressionSelector with a default CEL evaluator.
func CELSelector(expr string) (Selector, error) {
	return ExpressionSelector(NewCELEvaluator(), expr)
}

// JSSelector is ExpressionSelector with a default goja evaluator. It returns
// ErrNoEvaluator unless the module is built with the js_eval tag.
func JSSelector(expr string) (Selector, error) {
	if !jsEvaluatorAvailable() {
		return nil, fmt.Errorf("%w: js", ErrNoEvaluator)
	}
	return ExpressionSelector(NewJSEvaluator(), expr)
}

// SelectorsFromExpressions builds a SelectorMap from name to expression pairs.
// Expressions are compiled in name order and the first failure is returned.
func SelectorsFromExpressions(evaluator Evaluator, exprs map[string]string) (SelectorMap, error) {
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	selectors := make(SelectorMap, len(exprs))
	for _, name := range names {
		selector, err := expressionSelector(evaluator, name, exprs[name])
		if err != nil {
			return nil, fmt.Errorf("store: selector %q: %w", name, err)
		}
		selectors[name] = selector
	}
	return selectors, nil
}

func expressionSelector(evaluator Evaluator, name, expr string) (Selector, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), expr, name, err)
	}
	return func(view View) (any, error) {
		return rule.Evaluate(RuleContext{
			View:     view,
			Selector: name,
		})
	}, nil
}
