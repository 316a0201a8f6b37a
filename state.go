package store

// View is the read surface selectors evaluate against. State implements it,
// and so do reactive mirrors that track which keys a selector reads.
type View interface {
	Get(key string) *SubState
	Keys() []string
}

// Entry pairs a state key with its sub-state.
type Entry struct {
	Key   string
	Value *SubState
}

// State is an ordered, immutable mapping from slice names to sub-states.
// Mutating helpers return new values; the receiver is never changed.
type State struct {
	keys   []string
	values map[string]*SubState
}

// NewState builds a State preserving entry order. A repeated key keeps its
// first position and its last value.
func NewState(entries ...Entry) State {
	s := State{}
	for _, entry := range entries {
		s = s.With(entry.Key, entry.Value)
	}
	return s
}

// With returns a copy of s with key set to value.
func (s State) With(key string, value *SubState) State {
	out := s.clone(1)
	if _, ok := out.values[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

// Merge returns s shallow-merged with partial. Keys from partial win; new keys
// are appended in partial's order.
func (s State) Merge(partial State) State {
	out := s.clone(partial.Len())
	for _, key := range partial.keys {
		if _, ok := out.values[key]; !ok {
			out.keys = append(out.keys, key)
		}
		out.values[key] = partial.values[key]
	}
	return out
}

// Get returns the sub-state stored under key, or nil.
func (s State) Get(key string) *SubState {
	return s.values[key]
}

// Lookup returns the sub-state stored under key and whether it exists.
func (s State) Lookup(key string) (*SubState, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Has reports whether key is present.
func (s State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (s State) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of entries.
func (s State) Len() int {
	return len(s.keys)
}

// Entries returns the state as an ordered slice.
func (s State) Entries() []Entry {
	out := make([]Entry, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, Entry{Key: key, Value: s.values[key]})
	}
	return out
}

// Snapshot returns the state as nested native values keyed by slice name,
// the shape expression selectors evaluate against.
func Snapshot(view View) map[string]any {
	if view == nil {
		return map[string]any{}
	}
	keys := view.Keys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = view.Get(key).Values()
	}
	return out
}

func (s State) clone(extra int) State {
	out := State{
		keys:   make([]string, len(s.keys), len(s.keys)+extra),
		values: make(map[string]*SubState, len(s.values)+extra),
	}
	copy(out.keys, s.keys)
	for key, value := range s.values {
		out.values[key] = value
	}
	return out
}
