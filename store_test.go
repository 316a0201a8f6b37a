package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/observable"
	"github.com/google/go-cmp/cmp"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []LogEvent
}

func (l *recordingLogger) Log(event LogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]string, len(l.events))
	for i, event := range l.events {
		ops[i] = event.Op
	}
	return ops
}

func doubleSelectors() SelectorMap {
	return SelectorMap{
		"double": Pure(func(view View) any {
			return view.Get("s").Get("value").Int() * 2
		}),
	}
}

func counterState(value int) State {
	return NewState(Entry{Key: "s", Value: MustTag(Raw{"value": value})})
}

func TestDoubleSelectorThroughObservableStore(t *testing.T) {
	st, err := New(counterState(0), doubleSelectors(), WithObservable())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := st.Selectors()["double"](st.State())
	if err != nil || got != int64(0) {
		t.Fatalf("expected double 0, got %v (%v)", got, err)
	}

	var seen []int64
	cell, ok := st.Observable()
	if !ok {
		t.Fatalf("expected observable store")
	}
	unsubscribe := cell.Subscribe(func(state State) {
		seen = append(seen, state.Get("s").Get("value").Int())
	})
	defer unsubscribe()

	if err := st.PatchState(counterState(5)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err = st.Select("double")
	if err != nil || got != int64(10) {
		t.Fatalf("expected double 10, got %v (%v)", got, err)
	}
	if diff := cmp.Diff([]int64{5}, seen); diff != "" {
		t.Fatalf("emissions mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsUntaggedEntries(t *testing.T) {
	state := NewState(
		Entry{Key: "ok", Value: MustTag(Raw{"v": 1})},
		Entry{Key: "raw", Value: &SubState{}},
	)
	_, err := New(state, nil)
	if !errors.Is(err, ErrUntaggedSubState) {
		t.Fatalf("expected ErrUntaggedSubState, got %v", err)
	}
	var cerr *ConstructionError
	if !errors.As(err, &cerr) || cerr.Key != "raw" {
		t.Fatalf("expected error naming raw, got %v", err)
	}
	if !strings.Contains(err.Error(), "tag it first") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, err := New(NewState(Entry{Key: "nil", Value: nil}), nil); !errors.Is(err, ErrUntaggedSubState) {
		t.Fatalf("expected nil entry to be rejected, got %v", err)
	}
}

func TestStrictValidationRejectsOpaqueValues(t *testing.T) {
	lenient := MustTag(Raw{"at": time.Now()}, WithStrictTagging(false))
	state := NewState(Entry{Key: "clock", Value: lenient})

	_, err := New(state, nil)
	if !errors.Is(err, ErrOpaqueValue) {
		t.Fatalf("expected ErrOpaqueValue, got %v", err)
	}
	var cerr *ConstructionError
	if !errors.As(err, &cerr) || cerr.Key != "clock.at" {
		t.Fatalf("expected error naming clock.at, got %v", err)
	}

	if _, err := New(state, nil, WithStrictValidation(false)); err != nil {
		t.Fatalf("expected lenient store to accept opaque values, got %v", err)
	}
}

func TestReadOnlyStoreRefusesPatches(t *testing.T) {
	initial := counterState(1)
	st, err := New(initial, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := st.Observable(); ok {
		t.Fatalf("expected read-only store")
	}
	if err := st.PatchState(counterState(2)); !errors.Is(err, ErrNotObservable) {
		t.Fatalf("expected ErrNotObservable, got %v", err)
	}
	if st.State().Get("s").Get("value").Int() != 1 {
		t.Fatalf("state must not change")
	}
	if st.Selectors() != nil {
		t.Fatalf("expected nil selectors")
	}
	if _, err := st.Select("double"); !errors.Is(err, ErrUnknownSelector) {
		t.Fatalf("expected ErrUnknownSelector, got %v", err)
	}
}

func TestPatchNotifiesSubscribersInOrder(t *testing.T) {
	st, err := New(counterState(0), nil, WithObservable())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cell, _ := st.Observable()
	var order []string
	cell.Subscribe(func(State) { order = append(order, "first") })
	cell.Subscribe(func(State) { order = append(order, "second") })

	if err := st.PatchState(NewState(Entry{Key: "t", Value: MustTag(Raw{"v": 1})})); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if diff := cmp.Diff([]string{"first", "second"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"s", "t"}, st.State().Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriberMayPatchDuringNotification(t *testing.T) {
	st, err := New(counterState(0), doubleSelectors(), WithObservable())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cell, _ := st.Observable()
	var seen []int64
	cell.Subscribe(func(state State) {
		value := state.Get("s").Get("value").Int()
		seen = append(seen, value)
		if value == 1 {
			if err := st.PatchState(counterState(2)); err != nil {
				t.Errorf("nested patch: %v", err)
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- st.PatchState(counterState(1)) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("patch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("patch from inside a subscriber did not return")
	}

	if diff := cmp.Diff([]int64{1, 2}, seen); diff != "" {
		t.Fatalf("emissions mismatch (-want +got):\n%s", diff)
	}
	got, err := st.Select("double")
	if err != nil || got != int64(4) {
		t.Fatalf("expected double 4, got %v (%v)", got, err)
	}
}

func TestWithCellUsesSuppliedCell(t *testing.T) {
	cell := observable.NewSubject(State{})
	st, err := New(counterState(3), nil, WithCell(cell))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := cell.Current().Get("s").Get("value").Int(); got != 3 {
		t.Fatalf("expected cell seeded with initial state, got %d", got)
	}
	if err := st.PatchState(counterState(4)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if got := cell.Current().Get("s").Get("value").Int(); got != 4 {
		t.Fatalf("expected patched cell, got %d", got)
	}
}

func TestSelectorsAreFrozenCopies(t *testing.T) {
	selectors := doubleSelectors()
	st, err := New(counterState(1), selectors)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	selectors["late"] = Pure(func(View) any { return nil })
	if _, ok := st.Selectors()["late"]; ok {
		t.Fatalf("store must not observe later changes to the input map")
	}
	st.Selectors()["other"] = nil
	if _, ok := st.Selectors()["other"]; ok {
		t.Fatalf("returned map must be a copy")
	}
}

func TestStoreLogsOperations(t *testing.T) {
	logger := &recordingLogger{}
	st, err := New(counterState(1), doubleSelectors(), WithObservable(), WithLogger(logger), WithStoreID(" counter "))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if st.ID() != "counter" {
		t.Fatalf("expected trimmed id, got %q", st.ID())
	}
	if _, err := st.Select("double"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := st.PatchState(counterState(2)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if diff := cmp.Diff([]string{"create", "select", "patch"}, logger.ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if logger.events[1].Selector != "double" || logger.events[0].StoreID != "counter" {
		t.Fatalf("unexpected event metadata %+v", logger.events)
	}
}

func TestGeneratedStoreIDs(t *testing.T) {
	a, _ := New(State{}, nil)
	b, _ := New(State{}, nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected unique generated ids, got %q and %q", a.ID(), b.ID())
	}
}

func TestStoreEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	st, err := NewContext(context.Background(), counterState(1), doubleSelectors(),
		WithObservable(),
		WithStoreID("counter"),
		WithActivityHooks(activity.Hooks{nil, capture}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := st.PatchState(counterState(2)); err != nil {
		t.Fatalf("patch: %v", err)
	}

	if diff := cmp.Diff([]string{activity.VerbStoreCreated, activity.VerbStatePatched}, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
	created := capture.Events[0]
	if created.ObjectID != "counter" || created.Channel != "store" {
		t.Fatalf("unexpected created event %+v", created)
	}
	if created.Metadata["observable"] != true {
		t.Fatalf("expected observable metadata, got %v", created.Metadata)
	}
	if diff := cmp.Diff([]string{"s"}, capture.Events[1].Metadata["keys"]); diff != "" {
		t.Fatalf("patched keys mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityConfigFiltersVerbsAndStampsTenant(t *testing.T) {
	capture := &activity.CaptureHook{}
	st, err := New(counterState(1), nil,
		WithObservable(),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{
			Enabled:  true,
			Channel:  "audit",
			TenantID: "acme",
			Verbs:    []string{activity.VerbStatePatched},
		}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := st.PatchState(counterState(2)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if diff := cmp.Diff([]string{activity.VerbStatePatched}, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
	patched := capture.Events[0]
	if patched.Channel != "audit" || patched.TenantID != "acme" {
		t.Fatalf("expected channel audit and tenant acme, got %q and %q", patched.Channel, patched.TenantID)
	}
}

func TestActivityFailuresAreLogged(t *testing.T) {
	logger := &recordingLogger{}
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	st, err := New(counterState(1), nil,
		WithObservable(),
		WithLogger(logger),
		WithActivityHooks(activity.Hooks{capture}),
	)
	if err != nil {
		t.Fatalf("expected hook failure not to fail construction, got %v", err)
	}
	if err := st.PatchState(counterState(2)); err != nil {
		t.Fatalf("expected hook failure not to fail patch, got %v", err)
	}
	if diff := cmp.Diff([]string{"create", "activity", "patch", "activity"}, logger.ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}

	disabled := &activity.CaptureHook{}
	if _, err := New(State{}, nil, WithActivityHooks(activity.Hooks{disabled}), WithActivityConfig(activity.Config{Enabled: false})); err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(disabled.Events) != 0 {
		t.Fatalf("expected disabled emitter to skip hooks")
	}
}

func TestDescribeFlattensState(t *testing.T) {
	state := NewState(
		Entry{Key: "user", Value: MustTag(Raw{"name": "ada", "address": map[string]any{"city": "paris", "zip": 75}})},
		Entry{Key: "cart", Value: MustTag(Raw{"items": []any{"a"}, "empty": []any{}})},
		Entry{Key: "blank", Value: MustTag(Raw{})},
	)
	st, err := New(state, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	want := []FieldDescriptor{
		{Path: "user.address.city", Kind: "string"},
		{Path: "user.address.zip", Kind: "number"},
		{Path: "user.name", Kind: "string"},
		{Path: "cart.empty", Kind: "[]any"},
		{Path: "cart.items", Kind: "[]string"},
		{Path: "blank", Kind: "record"},
	}
	if diff := cmp.Diff(want, st.Describe()); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}
}
