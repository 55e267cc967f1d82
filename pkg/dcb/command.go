package dcb

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Command is a caller-supplied intent that a CommandHandler turns into
// events. Data is opaque to the executor; Metadata rides alongside for
// cross-cutting concerns that don't belong in the events themselves.
// Context, if set, is stamped onto every event the handler returns before
// it is appended (see EventContext).
type Command struct {
	Type     string
	Data     []byte
	Metadata map[string]any
	Context  EventContext
}

// CommandHandler decides what events (if any) a Command produces, given
// read access to the store it will be appended to. Handlers typically call
// store.Project first to build the decision model they need.
type CommandHandler interface {
	Handle(ctx context.Context, store EventStore, cmd Command) ([]Event, error)
}

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, store EventStore, cmd Command) ([]Event, error)

func (f CommandHandlerFunc) Handle(ctx context.Context, store EventStore, cmd Command) ([]Event, error) {
	return f(ctx, store, cmd)
}

// Locker is implemented by recorders that can serialize a critical section
// under a set of caller-chosen keys (tag-scoped advisory locks, in the
// postgres recorder). It is optional: ExecuteCommandWithLocks returns a
// NotSupportedError against a recorder that doesn't implement it, such as
// the in-memory one.
type Locker interface {
	WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// CommandExecutor runs a CommandHandler and appends the events it produces
// under an AppendCondition, as a single unit.
type CommandExecutor interface {
	// ExecuteCommand runs handler and appends its events under condition
	// (nil means unconditional).
	ExecuteCommand(ctx context.Context, cmd Command, handler CommandHandler, condition *AppendCondition) ([]Event, error)

	// ExecuteCommandWithLocks is ExecuteCommand plus a critical section: the
	// handler runs, and the events are appended, while keys are held locked
	// via the recorder's Locker. Locks are sorted before acquisition so that
	// two commands naming the same keys in different orders cannot deadlock
	// each other.
	ExecuteCommandWithLocks(ctx context.Context, cmd Command, handler CommandHandler, keys []string, condition *AppendCondition) ([]Event, error)
}

type commandExecutor struct {
	store EventStore
}

// NewCommandExecutor builds a CommandExecutor over store.
func NewCommandExecutor(store EventStore) CommandExecutor {
	return &commandExecutor{store: store}
}

func (ce *commandExecutor) ExecuteCommand(ctx context.Context, cmd Command, handler CommandHandler, condition *AppendCondition) ([]Event, error) {
	if handler == nil {
		return nil, newProgrammingError("ExecuteCommand", errNilHandler)
	}
	events, err := handler.Handle(ctx, ce.store, cmd)
	if err != nil {
		return nil, err
	}
	if err := validateHandlerEvents(events); err != nil {
		return nil, newDataError("ExecuteCommand", "events", "", err)
	}
	events = stampContext(events, cmd.Context)
	if _, err := ce.store.Append(ctx, events, condition); err != nil {
		return nil, err
	}
	return events, nil
}

func (ce *commandExecutor) ExecuteCommandWithLocks(ctx context.Context, cmd Command, handler CommandHandler, keys []string, condition *AppendCondition) ([]Event, error) {
	if handler == nil {
		return nil, newProgrammingError("ExecuteCommandWithLocks", errNilHandler)
	}
	if len(keys) == 0 {
		return nil, newProgrammingError("ExecuteCommandWithLocks", errNoLockKeys)
	}
	locker, ok := ce.store.(Locker)
	if !ok {
		return nil, newNotSupportedError("ExecuteCommandWithLocks", "advisory locks")
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var events []Event
	err := locker.WithLocks(ctx, sorted, func(ctx context.Context) error {
		var handlerErr error
		events, handlerErr = handler.Handle(ctx, ce.store, cmd)
		if handlerErr != nil {
			return handlerErr
		}
		if err := validateHandlerEvents(events); err != nil {
			return newDataError("ExecuteCommandWithLocks", "events", "", err)
		}
		events = stampContext(events, cmd.Context)
		_, err := ce.store.Append(ctx, events, condition)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// stampContext applies ec to every event, returning a new slice so the
// handler's own slice is never mutated out from under it.
func stampContext(events []Event, ec EventContext) []Event {
	stamped := make([]Event, len(events))
	for i, e := range events {
		stamped[i] = ec.Apply(e)
	}
	return stamped
}

func validateHandlerEvents(events []Event) error {
	if len(events) == 0 {
		return errHandlerProducedNoEvents
	}
	for i, e := range events {
		if e.Type == "" {
			return fmt.Errorf("event at index %d has empty type", i)
		}
	}
	return nil
}

var (
	errNilHandler              = errors.New("handler cannot be nil")
	errNoLockKeys              = errors.New("keys cannot be empty")
	errHandlerProducedNoEvents = errors.New("handler produced no events")
)
