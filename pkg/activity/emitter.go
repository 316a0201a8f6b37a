package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on store events that do not name a channel.
const DefaultChannel = "store"

// Config controls how a store reports activity.
type Config struct {
	Enabled bool
	Channel string
	// Verbs limits emission to the listed verbs. Empty reports every verb.
	Verbs []string
	// ActorID and TenantID are stamped on events that carry none.
	ActorID  string
	TenantID string
}

// Emitter reports the lifecycle of a single store. It stamps the store's
// channel and identity defaults, and ties projection events back to the store
// through the store_id metadata entry.
type Emitter struct {
	storeID  string
	hooks    Hooks
	channel  string
	actorID  string
	tenantID string
	verbs    map[string]struct{}
	enabled  bool
}

// NewEmitter builds the emitter for storeID. Nil hooks are dropped; with no
// hooks left the emitter is disabled.
func NewEmitter(storeID string, hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		storeID:  strings.TrimSpace(storeID),
		channel:  strings.TrimSpace(cfg.Channel),
		actorID:  strings.TrimSpace(cfg.ActorID),
		tenantID: strings.TrimSpace(cfg.TenantID),
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	for _, hook := range hooks {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
	for _, verb := range cfg.Verbs {
		if verb = strings.TrimSpace(verb); verb != "" {
			if e.verbs == nil {
				e.verbs = make(map[string]struct{}, len(cfg.Verbs))
			}
			e.verbs[verb] = struct{}{}
		}
	}
	e.enabled = cfg.Enabled && len(e.hooks) > 0
	return e
}

// StoreID returns the store the emitter reports for.
func (e *Emitter) StoreID() string {
	if e == nil {
		return ""
	}
	return e.storeID
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Reports reports whether an event with verb would reach the hooks.
func (e *Emitter) Reports(verb string) bool {
	if !e.Enabled() {
		return false
	}
	if e.verbs == nil {
		return true
	}
	_, ok := e.verbs[strings.TrimSpace(verb)]
	return ok
}

// Emit stamps the store defaults on event and forwards it to every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Reports(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.tenantID
	}
	if e.storeID != "" && event.ObjectType != objectTypeStore {
		if _, ok := event.Metadata["store_id"]; !ok {
			metadata := cloneMap(event.Metadata)
			metadata = ensureMetadata(metadata)
			metadata["store_id"] = e.storeID
			event.Metadata = metadata
		}
	}
	return e.hooks.Notify(ctx, event)
}
