package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind enumerates the value shapes a sub-state field may hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindRecord
	KindList
	KindFunc
	// KindOpaque marks a value that skipped kind validation. Stores built with
	// strict validation refuse sub-states carrying opaque values.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	case KindFunc:
		return "func"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is an immutable field value stored inside a SubState. The zero Value
// is null.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	float  bool
	s      string
	record map[string]Value
	list   []Value
	ref    any
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int wraps an integer number.
func Int(v int64) Value { return Value{kind: KindNumber, i: v} }

// Float wraps a floating point number.
func Float(v float64) Value { return Value{kind: KindNumber, f: v, float: true} }

// String wraps a string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// RecordOf builds a plain-structure value. The map is copied.
func RecordOf(fields map[string]Value) Value {
	out := make(map[string]Value, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return Value{kind: KindRecord, record: out}
}

// ListOf builds a sequence value. The slice is copied.
func ListOf(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// Func wraps a function reference. Non-function arguments produce null.
func Func(fn any) Value {
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return Null()
	}
	return Value{kind: KindFunc, ref: fn}
}

func opaque(v any) Value {
	return Value{kind: KindOpaque, ref: v}
}

// Kind reports the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload or false.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Int returns the number truncated to an integer, or 0.
func (v Value) Int() int64 {
	if v.kind != KindNumber {
		return 0
	}
	if v.float {
		return int64(v.f)
	}
	return v.i
}

// Float returns the number as float64, or 0.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}
	if v.float {
		return v.f
	}
	return float64(v.i)
}

// Str returns the string payload or "".
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// Field returns a nested record field, or null.
func (v Value) Field(key string) Value {
	if v.kind != KindRecord {
		return Null()
	}
	return v.record[key]
}

// Fields returns a copy of the record payload, or nil.
func (v Value) Fields() map[string]Value {
	if v.kind != KindRecord {
		return nil
	}
	out := make(map[string]Value, len(v.record))
	for key, value := range v.record {
		out[key] = value
	}
	return out
}

// Items returns a copy of the list payload, or nil.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.list...)
}

// Len returns the number of record fields or list items.
func (v Value) Len() int {
	switch v.kind {
	case KindRecord:
		return len(v.record)
	case KindList:
		return len(v.list)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Ref returns the function reference (or opaque payload), or nil.
func (v Value) Ref() any {
	if v.kind != KindFunc && v.kind != KindOpaque {
		return nil
	}
	return v.ref
}

// Native converts the value back into plain Go values: nil, bool, int64,
// float64, string, map[string]any, []any or the referenced function.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.float {
			return v.f
		}
		return v.i
	case KindString:
		return v.s
	case KindRecord:
		out := make(map[string]any, len(v.record))
		for key, value := range v.record {
			out[key] = value.Native()
		}
		return out
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindFunc, KindOpaque:
		return v.ref
	default:
		return nil
	}
}

// Equal reports structural equality. Function and opaque values compare by
// identity where the runtime allows it and are otherwise never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		if v.float || other.float {
			return v.Float() == other.Float()
		}
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindRecord:
		if len(v.record) != len(other.record) {
			return false
		}
		for key, value := range v.record {
			theirs, ok := other.record[key]
			if !ok || !value.Equal(theirs) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindFunc:
		return reflect.ValueOf(v.ref).Pointer() == reflect.ValueOf(other.ref).Pointer()
	default:
		if v.ref == nil || other.ref == nil {
			return v.ref == other.ref
		}
		if !reflect.TypeOf(v.ref).Comparable() || reflect.TypeOf(v.ref) != reflect.TypeOf(other.ref) {
			return false
		}
		return v.ref == other.ref
	}
}

// hasOpaque reports whether v or any nested value is opaque.
func (v Value) hasOpaque() bool {
	switch v.kind {
	case KindOpaque:
		return true
	case KindRecord:
		for _, value := range v.record {
			if value.hasOpaque() {
				return true
			}
		}
	case KindList:
		for _, item := range v.list {
			if item.hasOpaque() {
				return true
			}
		}
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindRecord:
		return fmt.Sprintf("record(%s)", strings.Join(sortedValueKeys(v.record), ","))
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindFunc:
		return fmt.Sprintf("func(%T)", v.ref)
	case KindOpaque:
		return fmt.Sprintf("opaque(%T)", v.ref)
	default:
		return fmt.Sprint(v.Native())
	}
}

func sortedValueKeys(fields map[string]Value) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
