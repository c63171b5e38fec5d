package runtime

// Event represents a runtime lifecycle event: a name, the canonical bundle
// directory and optional fields.
type Event struct {
	Name   string
	Dir    string
	Fields map[string]any
}

// EventPublisher receives events from the runtime. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
