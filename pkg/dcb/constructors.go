package dcb

// NewEvent builds an Event from its type, tags, and data.
func NewEvent(eventType string, tags []Tag, data []byte) Event {
	return Event{Type: eventType, Tags: tags, Data: data}
}

// EventBuilder accumulates an Event's fields fluently, for the common case
// of building one up across several call sites (e.g. a command handler
// attaching tags derived from several parts of its decision model) before
// handing it to Append.
type EventBuilder struct {
	event Event
}

// NewEventBuilder starts building an event of the given type.
func NewEventBuilder(eventType string) *EventBuilder {
	return &EventBuilder{event: Event{Type: eventType}}
}

// WithTag appends a single tag.
func (b *EventBuilder) WithTag(tag Tag) *EventBuilder {
	b.event.Tags = append(b.event.Tags, tag)
	return b
}

// WithTags appends every tag in tags.
func (b *EventBuilder) WithTags(tags ...Tag) *EventBuilder {
	b.event.Tags = append(b.event.Tags, tags...)
	return b
}

// WithData sets the event's payload.
func (b *EventBuilder) WithData(data []byte) *EventBuilder {
	b.event.Data = data
	return b
}

// Build returns the accumulated Event.
func (b *EventBuilder) Build() Event {
	return b.event
}

// NewCommand builds a Command from its type, payload, and metadata.
func NewCommand(commandType string, data []byte, metadata map[string]any) Command {
	return Command{Type: commandType, Data: data, Metadata: metadata}
}
