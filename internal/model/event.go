package model

// Event is one Motor Data telemetry sample as fetched from the analytics
// store: an ISO-8601 timestamp and a flat bag of named scalar properties.
// Immutable once fetched.
type Event struct {
	Timestamp  string
	Properties map[string]any
}

// SessionID returns the reserved $session_id property, if present.
func (e Event) SessionID() string {
	if v, ok := e.Properties["$session_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// EventSummary is a lightweight listing entry for one event, used by list
// mode and by the bulk-download quality filter.
type EventSummary struct {
	Timestamp     string
	SessionID     string
	PropertyCount int
}

// ClassifiedEvent holds one event's properties partitioned by category.
// Only categories with at least one matched property are present.
type ClassifiedEvent struct {
	Timestamp string
	Fields    map[Category]map[string]any
}

// AllFields flattens the per-category fields back into a single property
// map, the shape the master table stores.
func (c ClassifiedEvent) AllFields() map[string]any {
	merged := make(map[string]any)
	for _, fields := range c.Fields {
		for k, v := range fields {
			merged[k] = v
		}
	}
	return merged
}
