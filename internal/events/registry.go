package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownEvent is returned when a persisted event has no registered type.
var ErrUnknownEvent = errors.New("unknown event type")

// Registry decodes persisted events back into their concrete types.
type Registry struct {
	factories map[string]func() Event
}

// ImportEvents returns a registry for every event the import pipeline
// publishes.
func ImportEvents() *Registry {
	return &Registry{factories: map[string]func() Event{
		EventBatchStarted:     func() Event { return &BatchStarted{} },
		EventBatchCompleted:   func() Event { return &BatchCompleted{} },
		EventImportCommitted:  func() Event { return &ImportCommitted{} },
		EventImportConflicted: func() Event { return &ImportConflicted{} },
		EventImportFailed:     func() Event { return &ImportFailed{} },
		EventCatalogChanged:   func() Event { return &CatalogChanged{} },
	}}
}

// Types returns the registered event types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Known reports whether eventType can be decoded.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.factories[eventType]
	return ok
}

// Decode turns a stored row into its concrete event.
func (r *Registry) Decode(raw RawEvent) (Event, error) {
	factory, ok := r.factories[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, raw.EventType)
	}
	e := factory()
	if err := json.Unmarshal([]byte(raw.Payload), e); err != nil {
		return nil, fmt.Errorf("decode event %d (%s): %w", raw.ID, raw.EventType, err)
	}
	return e, nil
}
