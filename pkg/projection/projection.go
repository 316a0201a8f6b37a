package projection

import (
	"context"
	"fmt"
	"sync"

	store "github.com/goliatone/go-store"
	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/reactive"
	"github.com/google/uuid"
)

// Option configures a Projection.
type Option func(*config)

type config struct {
	id  string
	ctx context.Context
}

// WithID overrides the generated projection identifier.
func WithID(id string) Option {
	return func(cfg *config) {
		cfg.id = id
	}
}

// WithContext sets the context forwarded to activity hooks when the
// projection opens and closes.
func WithContext(ctx context.Context) Option {
	return func(cfg *config) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// Projection is a live mirror of a store's state plus memoized selector
// values.
type Projection struct {
	id        string
	ctx       context.Context
	store     *store.Store
	mirror    reactive.Object
	view      mirrorView
	computeds map[string]reactive.Computed
	names     []string

	unsubscribe func()
	closeOnce   sync.Once
}

type result struct {
	value any
	err   error
}

// Project builds a projection of st bound to provider. The mirror is seeded
// from the store's current state. Each call creates an independent
// subscription that Close releases.
func Project(st *store.Store, provider reactive.Provider, opts ...Option) *Projection {
	cfg := config{ctx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	current := st.State()
	p := &Projection{
		id:        cfg.id,
		ctx:       cfg.ctx,
		store:     st,
		mirror:    provider.Reactive(current.Keys(), seed(current)),
		computeds: make(map[string]reactive.Computed),
	}
	p.view = mirrorView{object: p.mirror}

	selectors := st.Selectors()
	for _, name := range selectors.Names() {
		selector := selectors[name]
		if selector == nil {
			continue
		}
		p.names = append(p.names, name)
		p.computeds[name] = provider.Computed(func() any {
			value, err := selector(p.view)
			return result{value: value, err: err}
		})
	}

	if cell, ok := st.Observable(); ok {
		// A subscriber that patches while being notified makes later listeners
		// receive an older value after the newer one; patching from the cell's
		// current value keeps the mirror on the latest state.
		p.unsubscribe = cell.Subscribe(func(store.State) {
			p.patch(cell.Current())
		})
	}

	st.Notify(p.ctx, activity.BuildProjectionOpenedEvent(activity.StoreEventInput{
		StoreID:      st.ID(),
		ProjectionID: p.id,
		Keys:         current.Keys(),
		Selectors:    p.Names(),
		Observable:   p.unsubscribe != nil,
	}))
	return p
}

// ID returns the projection identifier.
func (p *Projection) ID() string {
	return p.id
}

// State returns the mirror as a store.View. Reads made while a selector is
// evaluating are tracked by the provider.
func (p *Projection) State() store.View {
	return p.view
}

// Value returns the memoized result of the named selector, recomputing it
// first if a key it read has changed.
func (p *Projection) Value(name string) (any, error) {
	computed, ok := p.computeds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownSelector, name)
	}
	res, _ := computed.Get().(result)
	return res.value, res.err
}

// Names returns the selector names in sorted order.
func (p *Projection) Names() []string {
	return append([]string(nil), p.names...)
}

// Close releases the store subscription. It is safe to call more than once;
// the mirror keeps its last values.
func (p *Projection) Close() {
	p.closeOnce.Do(func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		p.store.Notify(p.ctx, activity.BuildProjectionClosedEvent(activity.StoreEventInput{
			StoreID:      p.store.ID(),
			ProjectionID: p.id,
		}))
	})
}

// patch writes every key of next whose sub-state differs from the mirror.
// Keys absent from next are left as they are.
func (p *Projection) patch(next store.State) {
	for _, key := range next.Keys() {
		incoming := next.Get(key)
		if current, ok := p.peek(key); ok && current == incoming {
			continue
		}
		p.mirror.Set(key, incoming)
	}
}

func (p *Projection) peek(key string) (*store.SubState, bool) {
	if peeker, ok := p.mirror.(interface{ Peek(string) any }); ok {
		sub, ok := peeker.Peek(key).(*store.SubState)
		return sub, ok
	}
	sub, ok := p.mirror.Get(key).(*store.SubState)
	return sub, ok
}

func seed(state store.State) map[string]any {
	values := make(map[string]any, state.Len())
	for _, entry := range state.Entries() {
		values[entry.Key] = entry.Value
	}
	return values
}

// mirrorView adapts the tracked object to store.View.
type mirrorView struct {
	object reactive.Object
}

func (v mirrorView) Get(key string) *store.SubState {
	sub, _ := v.object.Get(key).(*store.SubState)
	return sub
}

func (v mirrorView) Keys() []string {
	return v.object.Keys()
}

// Snapshot returns the mirror as native values keyed by state key. The result
// is a copy; writing to it does not affect the mirror.
func (p *Projection) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, key := range p.view.Keys() {
		out[key] = p.view.Get(key).Values()
	}
	return out
}
