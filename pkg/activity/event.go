// Package activity reports what the CRUD views and stores did to entities
// and persisted instances. Events fan out to any number of sinks.
package activity

import (
	"sort"
	"strings"
	"time"
)

type Verb string

const (
	VerbEntityCreated         Verb = "entity.created"
	VerbEntityUpdated         Verb = "entity.updated"
	VerbEntityDeleteRequested Verb = "entity.delete_requested"
	VerbStoreSaved            Verb = "store.saved"
)

// Actor identifies who caused an event. IDs stay strings so callers are not
// tied to one UUID type.
type Actor struct {
	ID       string
	UserID   string
	TenantID string
}

// Event is one thing that happened to an entity or a stored instance.
// Resource and EntityID are required; sinks never see events without them.
type Event struct {
	Verb       Verb
	Resource   string
	EntityID   string
	Instance   string
	Actor      Actor
	Changed    []string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

func EntityCreated(resource, entityID string) Event {
	return entityEvent(VerbEntityCreated, resource, entityID)
}

// EntityUpdated records a successful save. Changed lists the field names
// that differ from the previous server copy.
func EntityUpdated(resource, entityID string, changed []string) Event {
	event := entityEvent(VerbEntityUpdated, resource, entityID)
	event.Changed = changed
	return event
}

// DeleteRequested is emitted when a view hands its entity to the delete
// flow. The delete itself happens elsewhere.
func DeleteRequested(resource, entityID string) Event {
	return entityEvent(VerbEntityDeleteRequested, resource, entityID)
}

// StoreSaved records a write that changed a persisted store. The instance
// name doubles as entity id.
func StoreSaved(store, instance string) Event {
	store = strings.TrimSpace(store)
	if store == "" {
		store = "store"
	}
	return Event{
		Verb:     VerbStoreSaved,
		Resource: "store." + store,
		EntityID: instance,
		Instance: instance,
	}
}

func entityEvent(verb Verb, resource, entityID string) Event {
	if strings.TrimSpace(resource) == "" {
		resource = "entity"
	}
	return Event{Verb: verb, Resource: resource, EntityID: entityID}
}

func (e Event) WithInstance(name string) Event {
	e.Instance = name
	return e
}

func (e Event) WithActor(actor Actor) Event {
	e.Actor = actor
	return e
}

// WithMeta returns a copy carrying key in its metadata.
func (e Event) WithMeta(key string, value any) Event {
	meta := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta
	return e
}

// Complete reports whether the event names a verb, a resource and an id.
func (e Event) Complete() bool {
	return e.Verb != "" && e.Resource != "" && e.EntityID != ""
}

// Normalize trims identifiers, sorts changed fields and stamps the time.
// Slices and maps are copied so sinks may keep the result.
func Normalize(e Event) Event {
	out := e
	out.Verb = Verb(strings.TrimSpace(string(e.Verb)))
	out.Resource = strings.TrimSpace(e.Resource)
	out.EntityID = strings.TrimSpace(e.EntityID)
	out.Instance = strings.TrimSpace(e.Instance)
	out.Channel = strings.TrimSpace(e.Channel)
	out.Actor = Actor{
		ID:       strings.TrimSpace(e.Actor.ID),
		UserID:   strings.TrimSpace(e.Actor.UserID),
		TenantID: strings.TrimSpace(e.Actor.TenantID),
	}
	out.Changed = nil
	if len(e.Changed) > 0 {
		out.Changed = append([]string(nil), e.Changed...)
		sort.Strings(out.Changed)
	}
	out.Metadata = nil
	if len(e.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}
