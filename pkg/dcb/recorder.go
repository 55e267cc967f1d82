package dcb

import "context"

// Recorder is the minimum contract a storage backend must satisfy to back an
// EventStore: append a batch of events under an optional condition, and read
// events matching a query back in position order. Concrete recorders live in
// sibling packages (memory, postgres); EventStore is backend-agnostic.
type Recorder interface {
	// Append writes events to the log and returns the position assigned to
	// the last one. If condition is non-nil and FailIfEventsMatch matches
	// any event committed after condition.After, no event is written and an
	// *IntegrityError is returned.
	//
	// Append never partially commits: either every event in events lands at
	// consecutive positions, or none do.
	Append(ctx context.Context, events []Event, condition *AppendCondition) (int64, error)

	// Read returns events matching query, in ascending position order, plus a
	// head cursor. After nil means from the beginning; a non-nil After
	// excludes the event at that exact position. Limit <= 0 means unbounded,
	// and head is the true current tail of the whole log (nil if empty).
	// Limit > 0 bounds the result, and head instead reports the position of
	// the last event actually returned (nil if none were) — feed it back as
	// after on the next call to resume exactly where this one stopped.
	Read(ctx context.Context, query Query, after *int64, limit int) ([]SequencedEvent, *int64, error)

	// Head returns the position of the most recently appended event, or 0 if
	// the log is empty. Used to build an AppendCondition.After from the
	// current state without a full Read.
	Head(ctx context.Context) (int64, error)
}

// EventStore is the primary abstraction applications code against: Recorder
// plus the command/decision-model conveniences layered on top of it (see
// command.go, decision_model.go).
type EventStore interface {
	Recorder

	// Project folds events matching each StateProjector's query into that
	// projector's running state, starting after the optional cursor, and
	// returns the resulting states keyed by StateProjector.ID plus an
	// AppendCondition guarding a subsequent Append against anything that
	// would invalidate the projection (see decision_model.go).
	Project(ctx context.Context, projectors []StateProjector, after *int64) (map[string]any, AppendCondition, error)
}

// eventStore adapts any Recorder into an EventStore by adding the
// decision-model projection on top. It carries no backend-specific state;
// backends implement Recorder and wrap themselves with NewEventStore.
type eventStore struct {
	Recorder
}

// NewEventStore wraps a Recorder (an in-memory or postgres-backed one) with
// the decision-model and command conveniences, producing a full EventStore.
func NewEventStore(r Recorder) EventStore {
	return &eventStore{Recorder: r}
}

// WithLocks forwards to the wrapped Recorder's Locker if it has one. This
// method exists so that a *eventStore built over a Locker-capable Recorder
// (the postgres one) itself satisfies the Locker interface: embedding a
// Recorder field only promotes the methods Recorder itself declares, so
// without this forward ExecuteCommandWithLocks could never reach a wrapped
// recorder's advisory locks.
func (es *eventStore) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	locker, ok := es.Recorder.(Locker)
	if !ok {
		return newNotSupportedError("WithLocks", "advisory locks")
	}
	return locker.WithLocks(ctx, keys, fn)
}
