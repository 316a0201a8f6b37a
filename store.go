package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/observable"
)

// Store holds one State, optionally wrapped in an observable cell, plus an
// optional frozen selector map. Stores are built by New, which validates the
// initial state; the Store itself performs no validation.
type Store struct {
	id        string
	state     State
	cell      observable.Cell[State]
	selectors SelectorMap
	logger    Logger
	emitter   *activity.Emitter
}

// ID returns the store identifier used in logs and activity events.
func (s *Store) ID() string {
	return s.id
}

// State returns the current snapshot. Snapshots are immutable values; callers
// change state only through PatchState.
func (s *Store) State() State {
	if s.cell != nil {
		return s.cell.Current()
	}
	return s.state
}

// Observable returns the cell wrapping the state, if the store was built with
// one.
func (s *Store) Observable() (observable.Cell[State], bool) {
	return s.cell, s.cell != nil
}

// Selectors returns a copy of the selector map, or nil when none was
// configured.
func (s *Store) Selectors() SelectorMap {
	return s.selectors.clone()
}

// Select evaluates the named selector against the current state.
func (s *Store) Select(name string) (any, error) {
	return s.SelectFrom(name, s.State())
}

// SelectFrom evaluates the named selector against view.
func (s *Store) SelectFrom(name string, view View) (any, error) {
	selector, ok := s.selectors[name]
	if !ok || selector == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, name)
	}
	start := time.Now()
	value, err := selector(view)
	s.logger.Log(LogEvent{
		Op:       "select",
		StoreID:  s.id,
		Selector: name,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// PatchState shallow-merges partial into the current snapshot and emits the
// result to every subscriber before returning.
func (s *Store) PatchState(partial State) error {
	return s.PatchStateContext(context.Background(), partial)
}

// PatchStateContext is PatchState with a context forwarded to activity hooks.
func (s *Store) PatchStateContext(ctx context.Context, partial State) error {
	keys := partial.Keys()
	if s.cell == nil {
		s.logger.Log(LogEvent{Op: "patch", StoreID: s.id, Keys: keys, Err: ErrNotObservable})
		return ErrNotObservable
	}

	start := time.Now()
	s.apply(partial)
	s.logger.Log(LogEvent{Op: "patch", StoreID: s.id, Keys: keys, Duration: time.Since(start)})

	s.emit(ctx, activity.BuildStatePatchedEvent(activity.StoreEventInput{
		StoreID: s.id,
		Keys:    keys,
	}))
	return nil
}

// apply merges partial into the cell. No lock is held while subscribers run,
// so a subscriber may patch the store from inside its own notification.
func (s *Store) apply(partial State) {
	merge := func(current State) State { return current.Merge(partial) }
	if updater, ok := s.cell.(observable.Updater[State]); ok {
		updater.Update(merge)
		return
	}
	// Cells without Update get a plain read then write; concurrent patches
	// through such a cell may race.
	s.cell.Next(merge(s.cell.Current()))
}

func (s *Store) emit(ctx context.Context, event activity.Event) {
	if !s.emitter.Reports(event.Verb) {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Log(LogEvent{Op: "activity", StoreID: s.id, Err: err})
	}
}

// Notify forwards event to the store's activity hooks. Hook failures are
// logged, not returned.
func (s *Store) Notify(ctx context.Context, event activity.Event) {
	s.emit(ctx, event)
}
