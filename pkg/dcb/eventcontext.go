package dcb

import "github.com/google/uuid"

// EventContext threads an actor and causation/correlation identifiers
// through a command's execution as an explicit value, instead of a
// package-level current-user global. CorrelationID ties a whole business
// transaction together across multiple commands; CausationID names the
// specific event or command that produced this batch.
type EventContext struct {
	ActorID       string
	CausationID   string
	CorrelationID string
}

// NewEventContext starts a fresh correlation for actorID: CorrelationID and
// CausationID both set to a new identifier, as when an EventContext is
// seeded by an external request rather than caused by a prior event.
func NewEventContext(actorID string) EventContext {
	id := uuid.NewString()
	return EventContext{ActorID: actorID, CausationID: id, CorrelationID: id}
}

// CausedBy derives an EventContext for events caused by evt: it keeps the
// actor and CorrelationID, and sets CausationID to evt's own ID, threading
// the chain forward one link.
func (ec EventContext) CausedBy(evt SequencedEvent) EventContext {
	return EventContext{ActorID: ec.ActorID, CausationID: evt.ID, CorrelationID: ec.CorrelationID}
}

// Apply stamps CausationID/CorrelationID onto e, ready to hand to Append.
// Command handlers don't normally call this directly; CommandExecutor does
// it for every event a handler returns.
func (ec EventContext) Apply(e Event) Event {
	e.CausationID = ec.CausationID
	e.CorrelationID = ec.CorrelationID
	return e
}
