//go:build !js_eval

package store

// NewJSEvaluator returns nil unless the module is built with the js_eval tag.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
