package dcb

import "encoding/json"

// DomainEvent is a caller-defined event type, independent of how the store
// encodes it. EventType names a stable identifier under which the mapper
// registers and later resolves this type; EventTags are the tags a new
// instance of this event should carry when appended.
type DomainEvent interface {
	EventType() string
	EventTags() []Tag
}

// Mapper is the bidirectional codec between DomainEvent values and the
// store's opaque (type, data, tags) triple: ToStore encodes a DomainEvent
// for Append, ToDomain decodes a stored Event back into one. Resolving
// type back to a Go type goes through an explicit registry rather than
// reflection over package-scanned types, so an unknown type on read is a
// named, loud failure instead of a panic or a silently dropped event.
type Mapper struct {
	constructors map[string]func() DomainEvent
}

// NewMapper returns an empty Mapper; register every DomainEvent type it
// must decode with Register before first use.
func NewMapper() *Mapper {
	return &Mapper{constructors: make(map[string]func() DomainEvent)}
}

// Register binds typeName to ctor, a zero-value constructor ToDomain calls
// before unmarshaling into it. Register is meant to run once per type at
// startup, before any concurrent ToDomain calls; it panics on a duplicate
// registration, since two constructors for the same type name is a wiring
// mistake the caller should catch immediately rather than have resolved
// silently by registration order.
func (m *Mapper) Register(typeName string, ctor func() DomainEvent) {
	if _, exists := m.constructors[typeName]; exists {
		panic("dcb: mapper: type " + typeName + " already registered")
	}
	m.constructors[typeName] = ctor
}

// ToStore encodes evt as an Event ready for Append: Type and Tags come
// from evt itself, Data is its JSON encoding.
func (m *Mapper) ToStore(evt DomainEvent) (Event, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return Event{}, newDataError("ToStore", "data", evt.EventType(), err)
	}
	return Event{Type: evt.EventType(), Data: data, Tags: evt.EventTags()}, nil
}

// ToDomain decodes a stored Event back into the DomainEvent its type was
// registered under. An unrecognized type is a ProgrammingError: it means
// either the registry is missing a Register call for a type this store
// actually holds, or the caller is reading a log written by a different
// version of the domain model. A type that's registered but whose stored
// data doesn't unmarshal into it is a DataError instead — the registry
// wiring is fine, the bytes are not what they claim to be.
func (m *Mapper) ToDomain(rec Event) (DomainEvent, error) {
	ctor, ok := m.constructors[rec.Type]
	if !ok {
		return nil, newProgrammingError("ToDomain", errUnregisteredType(rec.Type))
	}
	evt := ctor()
	if err := json.Unmarshal(rec.Data, evt); err != nil {
		return nil, newDataError("ToDomain", "data", rec.Type, err)
	}
	return evt, nil
}

type unregisteredTypeError string

func (e unregisteredTypeError) Error() string {
	return "unregistered event type: " + string(e)
}

func errUnregisteredType(typeName string) error {
	return unregisteredTypeError(typeName)
}
