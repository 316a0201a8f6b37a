package store

import (
	"context"
	"time"

	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/observable"
	"github.com/google/uuid"
)

// New validates initial and constructs a Store around it. Every entry must be
// a tagged sub-state; with strict validation (the default) entries tagged with
// WithStrictTagging(false) that hold unvalidated values are refused as well.
// New performs gatekeeping only and hands initial and selectors to the Store
// unchanged.
func New(initial State, selectors SelectorMap, opts ...Option) (*Store, error) {
	return NewContext(context.Background(), initial, selectors, opts...)
}

// NewContext is New with a context forwarded to activity hooks.
func NewContext(ctx context.Context, initial State, selectors SelectorMap, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	logger := cfg.loggerOrNoop()
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	start := time.Now()
	if err := validateState(initial, cfg.strict); err != nil {
		logger.Log(LogEvent{Op: "create", StoreID: id, Keys: initial.Keys(), Err: err})
		return nil, err
	}

	st := &Store{
		id:        id,
		state:     initial,
		selectors: selectors.clone(),
		logger:    logger,
		emitter:   activity.NewEmitter(id, cfg.activityHooks, cfg.activityCfg),
	}
	if cfg.observable {
		cell := cfg.cell
		if cell == nil {
			cell = observable.NewSubject(initial)
		} else {
			cell.Next(initial)
		}
		st.cell = cell
	}
	logger.Log(LogEvent{Op: "create", StoreID: id, Keys: initial.Keys(), Duration: time.Since(start)})

	st.emit(ctx, activity.BuildStoreCreatedEvent(activity.StoreEventInput{
		StoreID:    id,
		Keys:       initial.Keys(),
		Selectors:  selectors.Names(),
		Observable: st.cell != nil,
	}))
	return st, nil
}

func validateState(state State, strict bool) error {
	for _, entry := range state.Entries() {
		if !entry.Value.Tagged() {
			return constructionError("create store", entry.Key, ErrUntaggedSubState)
		}
		if !strict {
			continue
		}
		if field, ok := entry.Value.hasOpaque(); ok {
			return constructionError("create store", entry.Key+"."+field, ErrOpaqueValue)
		}
	}
	return nil
}
