package store

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"sort"
	"time"
)

// MarkerKey is the reserved field name that flags a record as tagged. Raw
// records may never supply it.
const MarkerKey = "__isSubState__"

// Raw is an untagged record as supplied by callers.
type Raw map[string]any

// SubState is an immutable, validated slice of application state. Only Tag
// and TagRecord return values that report Tagged.
type SubState struct {
	fields map[string]Value
	keys   []string
	tagged bool
}

// TagOption configures Tag.
type TagOption func(*tagConfig)

type tagConfig struct {
	strict bool
}

// WithStrictTagging toggles kind validation. Strict tagging is the default;
// disabling it stores unsupported values as KindOpaque instead of failing.
func WithStrictTagging(strict bool) TagOption {
	return func(cfg *tagConfig) {
		cfg.strict = strict
	}
}

func applyTagOptions(opts []TagOption) tagConfig {
	cfg := tagConfig{strict: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Tag validates raw and returns a tagged copy. Keys are visited in sorted
// order so the first reported offender is stable for the same input.
func Tag(raw Raw, opts ...TagOption) (*SubState, error) {
	cfg := applyTagOptions(opts)
	if _, ok := raw[MarkerKey]; ok {
		return nil, constructionError("tag", MarkerKey, ErrReservedKey)
	}
	keys := sortedRawKeys(raw)
	fields := make(map[string]Value, len(keys))
	for _, key := range keys {
		value, err := convertValue(raw[key], key, cfg.strict)
		if err != nil {
			return nil, err
		}
		fields[key] = value
	}
	return &SubState{fields: fields, keys: keys, tagged: true}, nil
}

// MustTag is Tag for package level initialisation; it panics on error.
func MustTag(raw Raw, opts ...TagOption) *SubState {
	sub, err := Tag(raw, opts...)
	if err != nil {
		panic(err)
	}
	return sub
}

// TagRecord tags an already typed record. Only the reserved key is checked.
func TagRecord(fields map[string]Value) (*SubState, error) {
	if _, ok := fields[MarkerKey]; ok {
		return nil, constructionError("tag", MarkerKey, ErrReservedKey)
	}
	keys := sortedValueKeys(fields)
	copied := make(map[string]Value, len(fields))
	for _, key := range keys {
		copied[key] = fields[key]
	}
	return &SubState{fields: copied, keys: keys, tagged: true}, nil
}

// Tagged reports whether s was produced by Tag or TagRecord.
func (s *SubState) Tagged() bool {
	return s != nil && s.tagged
}

// Get returns the field value for key, or null.
func (s *SubState) Get(key string) Value {
	if s == nil {
		return Null()
	}
	return s.fields[key]
}

// Has reports whether key is set.
func (s *SubState) Has(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.fields[key]
	return ok
}

// Keys returns the field names in sorted order.
func (s *SubState) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len returns the number of fields.
func (s *SubState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Record returns the fields as native Go values plus MarkerKey set to true.
// Feeding the result back into Tag fails, tagging is not re-entrant.
func (s *SubState) Record() map[string]any {
	out := s.Values()
	if s.Tagged() {
		out[MarkerKey] = true
	}
	return out
}

// Values returns the fields as native Go values without the marker.
func (s *SubState) Values() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(s.fields))
	for key, value := range s.fields {
		out[key] = value.Native()
	}
	return out
}

func (s *SubState) hasOpaque() (string, bool) {
	if s == nil {
		return "", false
	}
	for _, key := range s.keys {
		if s.fields[key].hasOpaque() {
			return key, true
		}
	}
	return "", false
}

var (
	valueType    = reflect.TypeOf(Value{})
	timeType     = reflect.TypeOf(time.Time{})
	locationType = reflect.TypeOf(time.Location{})
	regexpType   = reflect.TypeOf(regexp.Regexp{})
	bigIntType   = reflect.TypeOf(big.Int{})
	bigFloatType = reflect.TypeOf(big.Float{})
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// denied reports values that are never safe to keep in a store, regardless of
// how they could otherwise be represented.
func denied(rt reflect.Type) bool {
	if rt.Implements(errorType) {
		return true
	}
	base := rt
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base {
	case timeType, locationType, regexpType, bigIntType, bigFloatType:
		return true
	}
	switch rt.Kind() {
	case reflect.Chan, reflect.UnsafePointer:
		return true
	case reflect.Slice, reflect.Array:
		return rt.Elem().Kind() == reflect.Uint8
	}
	return false
}

func convertValue(input any, path string, strict bool) (Value, error) {
	if input == nil {
		return Null(), nil
	}
	if v, ok := input.(Value); ok {
		if strict && v.hasOpaque() {
			return Value{}, forbidden(path, "store.Value(opaque)")
		}
		return v, nil
	}
	return convertReflect(reflect.ValueOf(input), path, strict)
}

func convertReflect(rv reflect.Value, path string, strict bool) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	rt := rv.Type()
	if rt == valueType {
		return convertValue(rv.Interface(), path, strict)
	}
	if denied(rt) {
		return rejectOrOpaque(rv, path, strict)
	}
	switch rt.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u)), nil
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Func:
		if rv.IsNil() {
			return Null(), nil
		}
		return Value{kind: KindFunc, ref: rv.Interface()}, nil
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return convertReflect(rv.Elem(), path, strict)
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return rejectOrOpaque(rv, path, strict)
		}
		if rv.IsNil() {
			return Null(), nil
		}
		keys := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		fields := make(map[string]Value, len(keys))
		for _, key := range keys {
			elem := rv.MapIndex(reflect.ValueOf(key).Convert(rt.Key()))
			value, err := convertReflect(elem, path+"."+key, strict)
			if err != nil {
				return Value{}, err
			}
			fields[key] = value
		}
		return Value{kind: KindRecord, record: fields}, nil
	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := convertReflect(rv.Index(i), fmt.Sprintf("%s[%d]", path, i), strict)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Value{kind: KindList, list: items}, nil
	default:
		return rejectOrOpaque(rv, path, strict)
	}
}

func rejectOrOpaque(rv reflect.Value, path string, strict bool) (Value, error) {
	if strict {
		return Value{}, forbidden(path, rv.Type().String())
	}
	return opaque(rv.Interface()), nil
}

func forbidden(path, typeName string) error {
	return &ConstructionError{Op: "tag", Key: path, Type: typeName, Err: ErrForbiddenKind}
}

func sortedRawKeys(raw Raw) []string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
