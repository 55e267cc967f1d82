// Package memory provides an in-process Recorder backed by a guarded slice.
// It exists for tests and examples, not production use: every operation
// holds a single mutex for its duration, and nothing survives process exit.
package memory

import (
	"context"
	"errors"
	"sync"

	"godcb/pkg/dcb"
)

// Recorder is an in-memory dcb.Recorder. The zero value is not usable; build
// one with New.
type Recorder struct {
	mu     sync.Mutex
	events []dcb.SequencedEvent
	dcb.NoopNotifier
}

var (
	_ dcb.Recorder      = (*Recorder)(nil)
	_ dcb.Notifier      = (*Recorder)(nil)
	_ dcb.ChannelReader = (*Recorder)(nil)
)

// New returns an empty in-memory Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Append implements dcb.Recorder.
func (r *Recorder) Append(ctx context.Context, events []dcb.Event, condition *dcb.AppendCondition) (int64, error) {
	if len(events) == 0 {
		return 0, &dcb.ProgrammingError{
			EventStoreError: dcb.EventStoreError{Op: "Append", Err: errNoEvents},
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if condition != nil {
		conflict, ok := r.firstMatch(condition.FailIfEventsMatch, condition.After)
		if ok {
			return 0, &dcb.IntegrityError{
				EventStoreError:  dcb.EventStoreError{Op: "Append", Err: errConditionViolated},
				ConflictPosition: conflict,
			}
		}
	}

	var last int64
	for _, e := range events {
		last = int64(len(r.events)) + 1
		r.events = append(r.events, dcb.SequencedEvent{
			Event:    e,
			ID:       dcb.NewEventID(e.Tags),
			Position: last,
		})
	}
	return last, nil
}

var (
	errNoEvents          = errors.New("at least one event is required")
	errConditionViolated = errors.New("append condition violated by a later event")
)

// Read implements dcb.Recorder. When limit <= 0, head is the position of the
// last event in the whole log (nil if empty). When limit > 0, head is
// instead the position of the last event this call returned (nil if none
// were), so a caller can resume from exactly where this call stopped.
func (r *Recorder) Read(ctx context.Context, query dcb.Query, after *int64, limit int) ([]dcb.SequencedEvent, *int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []dcb.SequencedEvent
	for _, e := range r.events {
		if after != nil && e.Position <= *after {
			continue
		}
		if !query.Matches(e.Event) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	if limit > 0 {
		if len(out) == 0 {
			return out, nil, nil
		}
		last := out[len(out)-1].Position
		return out, &last, nil
	}

	if len(r.events) == 0 {
		return out, nil, nil
	}
	head := r.events[len(r.events)-1].Position
	return out, &head, nil
}

// Head implements dcb.Recorder.
func (r *Recorder) Head(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return 0, nil
	}
	return r.events[len(r.events)-1].Position, nil
}

// ReadChannel implements dcb.ChannelReader by streaming an already-read
// slice over a channel; the in-memory recorder holds its whole log in
// memory anyway, so there is no separate incremental path to offer.
func (r *Recorder) ReadChannel(ctx context.Context, query dcb.Query, after *int64) (<-chan dcb.SequencedEvent, <-chan error) {
	out := make(chan dcb.SequencedEvent)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		events, _, err := r.Read(ctx, query, after, 0)
		if err != nil {
			errc <- err
			return
		}
		for _, e := range events {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errc
}

// firstMatch scans the log for the first event after the given position
// matching query, reporting its position if found. Callers must already
// hold r.mu.
func (r *Recorder) firstMatch(query dcb.Query, after *int64) (int64, bool) {
	for _, e := range r.events {
		if after != nil && e.Position <= *after {
			continue
		}
		if query.Matches(e.Event) {
			return e.Position, true
		}
	}
	return 0, false
}
