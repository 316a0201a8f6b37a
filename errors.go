package store

import (
	"errors"
	"fmt"
)

var (
	// ErrReservedKey indicates a raw record tried to supply the marker key.
	ErrReservedKey = errors.New("store: reserved key")
	// ErrForbiddenKind indicates a raw record holds a value that is not safe to
	// keep in a store.
	ErrForbiddenKind = errors.New("store: forbidden value type")
	// ErrUntaggedSubState indicates a state entry did not go through Tag.
	ErrUntaggedSubState = errors.New("store: not a recognized sub-state; tag it first")
	// ErrOpaqueValue indicates a strict store received a leniently tagged
	// sub-state.
	ErrOpaqueValue = errors.New("store: sub-state holds unvalidated values")
	// ErrDuplicateSelector indicates two selector maps define the same name.
	ErrDuplicateSelector = errors.New("store: duplicate selector key")
	// ErrNoSelectorMaps indicates ComposeSelectors received no input.
	ErrNoSelectorMaps = errors.New("store: at least one selector map is required")
	// ErrNotObservable indicates PatchState was called on a read-only store.
	ErrNotObservable = errors.New("store: state is not observable")
	// ErrUnknownSelector indicates Select received an unregistered name.
	ErrUnknownSelector = errors.New("store: unknown selector")
)

// ConstructionError reports a failure while tagging a sub-state or building a
// store. Key names the offending field or state entry when one applies.
type ConstructionError struct {
	Op  string
	Key string
	// Type describes the rejected runtime type for ErrForbiddenKind.
	Type string
	Err  error
}

func (e *ConstructionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Key != "" && e.Type != "":
		return fmt.Sprintf("%s: %v %s for key: %s", e.Op, e.Err, e.Type, e.Key)
	case e.Key != "":
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Key)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ConstructionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompositionError reports a selector composition failure. Index is the
// position of the map that introduced Key a second time.
type CompositionError struct {
	Key   string
	Index int
	Err   error
}

func (e *CompositionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key == "" {
		return fmt.Sprintf("compose selectors: %v", e.Err)
	}
	return fmt.Sprintf("compose selectors: %v: %s (map %d)", e.Err, e.Key, e.Index)
}

func (e *CompositionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func constructionError(op, key string, err error) error {
	return &ConstructionError{Op: op, Key: key, Err: err}
}
