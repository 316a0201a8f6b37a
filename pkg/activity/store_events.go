package activity

import (
	"strings"
	"time"
)

const (
	// VerbStoreCreated is emitted once a store passed validation.
	VerbStoreCreated = "store.created"
	// VerbStatePatched is emitted after a patch was delivered to subscribers.
	VerbStatePatched = "store.state.patched"
	// VerbProjectionOpened is emitted when a reactive projection subscribes.
	VerbProjectionOpened = "store.projection.opened"
	// VerbProjectionClosed is emitted when a projection releases its subscription.
	VerbProjectionClosed = "store.projection.closed"

	objectTypeStore      = "store"
	objectTypeProjection = "store.projection"
)

// StoreEventInput describes the common fields for store lifecycle events.
type StoreEventInput struct {
	ActorID      string
	UserID       string
	TenantID     string
	StoreID      string
	ProjectionID string
	Channel      string
	Keys         []string
	Selectors    []string
	Observable   bool
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildStoreCreatedEvent constructs the event describing a new store.
func BuildStoreCreatedEvent(input StoreEventInput) Event {
	event := buildStoreEvent(VerbStoreCreated, objectTypeStore, input.StoreID, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["observable"] = input.Observable
	if len(input.Selectors) > 0 {
		event.Metadata["selectors"] = append([]string{}, input.Selectors...)
	}
	return event
}

// BuildStatePatchedEvent constructs the event describing a state patch. Keys
// lists the patched slices.
func BuildStatePatchedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStatePatched, objectTypeStore, input.StoreID, input)
}

// BuildProjectionOpenedEvent constructs the event describing a new projection.
func BuildProjectionOpenedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbProjectionOpened, objectTypeProjection, input.ProjectionID, input)
}

// BuildProjectionClosedEvent constructs the event describing a released
// projection.
func BuildProjectionClosedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbProjectionClosed, objectTypeProjection, input.ProjectionID, input)
}

func buildStoreEvent(verb, objectType, objectID string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Keys) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["keys"] = append([]string{}, input.Keys...)
	}
	if storeID := strings.TrimSpace(input.StoreID); storeID != "" && objectType != objectTypeStore {
		metadata = ensureMetadata(metadata)
		metadata["store_id"] = storeID
	}

	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
