package store

import "sort"

// Selector derives a value from the state. Selectors must be free of side
// effects and return equal results for equal state.
type Selector func(View) (any, error)

// SelectorMap names a set of selectors.
type SelectorMap map[string]Selector

// Pure adapts an infallible function into a Selector.
func Pure(fn func(View) any) Selector {
	if fn == nil {
		return nil
	}
	return func(view View) (any, error) {
		return fn(view), nil
	}
}

// Names returns the selector names sorted alphabetically.
func (m SelectorMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m SelectorMap) clone() SelectorMap {
	if m == nil {
		return nil
	}
	out := make(SelectorMap, len(m))
	for name, selector := range m {
		out[name] = selector
	}
	return out
}

// ComposeSelectors merges maps left to right into a new map. A name defined by
// more than one map is an error; order only decides which map is blamed.
func ComposeSelectors(maps ...SelectorMap) (SelectorMap, error) {
	if len(maps) == 0 {
		return nil, &CompositionError{Index: -1, Err: ErrNoSelectorMaps}
	}
	out := SelectorMap{}
	for index, selectors := range maps {
		for _, name := range selectors.Names() {
			if _, exists := out[name]; exists {
				return nil, &CompositionError{Key: name, Index: index, Err: ErrDuplicateSelector}
			}
			out[name] = selectors[name]
		}
	}
	return out, nil
}
