package store

import "strings"

// FieldDescriptor describes one leaf path of a state and the kind held there.
type FieldDescriptor struct {
	Path string
	Kind string
}

// Describe walks the current state and returns a descriptor per leaf field in
// state key order. Records are flattened with dotted paths; lists report the
// kind of their first item.
func (s *Store) Describe() []FieldDescriptor {
	return DescribeState(s.State())
}

// DescribeState is Describe for an arbitrary view.
func DescribeState(view View) []FieldDescriptor {
	descriptors := []FieldDescriptor{}
	for _, key := range view.Keys() {
		sub := view.Get(key)
		if sub == nil {
			continue
		}
		if sub.Len() == 0 {
			descriptors = append(descriptors, FieldDescriptor{Path: key, Kind: KindRecord.String()})
			continue
		}
		for _, field := range sub.Keys() {
			descriptors = append(descriptors, deriveFieldDescriptors(sub.Get(field), joinPath(key, field))...)
		}
	}
	return descriptors
}

func deriveFieldDescriptors(value Value, prefix string) []FieldDescriptor {
	switch value.Kind() {
	case KindRecord:
		fields := value.Fields()
		if len(fields) == 0 {
			return []FieldDescriptor{{Path: prefix, Kind: KindRecord.String()}}
		}
		var out []FieldDescriptor
		for _, key := range sortedValueKeys(fields) {
			out = append(out, deriveFieldDescriptors(fields[key], joinPath(prefix, key))...)
		}
		return out
	case KindList:
		element := "any"
		if items := value.Items(); len(items) > 0 {
			element = items[0].Kind().String()
		}
		return []FieldDescriptor{{Path: prefix, Kind: "[]" + element}}
	default:
		return []FieldDescriptor{{Path: prefix, Kind: value.Kind().String()}}
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
