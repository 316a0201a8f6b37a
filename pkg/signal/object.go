package signal

// Object is a tracked key/value container backed by one signal per key.
type Object struct {
	rt      *Runtime
	keys    []string
	present map[string]bool
	signals map[string]*Signal
	shape   *Signal
}

// Object creates a tracked container seeded with values. keys fixes the
// iteration order; values without a matching key are ignored.
func (rt *Runtime) Object(keys []string, values map[string]any) *Object {
	o := &Object{
		rt:      rt,
		present: make(map[string]bool, len(keys)),
		signals: make(map[string]*Signal, len(keys)),
		shape:   rt.Signal(0),
	}
	for _, key := range keys {
		if o.present[key] {
			continue
		}
		o.present[key] = true
		o.keys = append(o.keys, key)
		o.signals[key] = rt.Signal(values[key])
	}
	return o
}

// Get returns the value for key. Reading a missing key still registers a
// dependency so a later Set of that key invalidates the reader.
func (o *Object) Get(key string) any {
	return o.signal(key).Get()
}

// Peek returns the value for key without tracking.
func (o *Object) Peek(key string) any {
	if sig, ok := o.signals[key]; ok {
		return sig.Peek()
	}
	return nil
}

// Set writes key, invalidating readers of that key only. Adding a new key also
// invalidates readers of Keys.
func (o *Object) Set(key string, value any) {
	sig := o.signal(key)
	if !o.present[key] {
		o.present[key] = true
		o.keys = append(o.keys, key)
		o.shape.Set(len(o.keys))
	}
	sig.Set(value)
}

// Keys returns the keys in insertion order and tracks the key set.
func (o *Object) Keys() []string {
	o.shape.Get()
	return append([]string(nil), o.keys...)
}

func (o *Object) signal(key string) *Signal {
	sig, ok := o.signals[key]
	if !ok {
		sig = o.rt.Signal(nil)
		o.signals[key] = sig
	}
	return sig
}
