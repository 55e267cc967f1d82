package dcb

import (
	"context"
	"errors"
)

// StateProjector folds a stream of events matching Query into a running
// decision-model state, starting from InitialState. It is the Go-idiomatic
// equivalent of the "decision model" described in the DCB literature: a
// read-side projection scoped to exactly the events a command needs to
// decide whether it is allowed to proceed.
type StateProjector struct {
	ID           string
	Query        Query
	InitialState any
	Transition   func(state any, event SequencedEvent) any
}

// Project folds events matching each projector's Query (read once after the
// optional cursor) into that projector's state, and returns an
// AppendCondition suitable for guarding a subsequent Append: its
// FailIfEventsMatch is the union of every projector's Query, and its After is
// the highest position observed across all of them (or the supplied after,
// if nothing matched).
//
// This is the core of the "decision model" append pattern: read the state a
// decision depends on, then append new events conditioned on nothing else
// matching that same state having appeared since.
func (es *eventStore) Project(ctx context.Context, projectors []StateProjector, after *int64) (map[string]any, AppendCondition, error) {
	if len(projectors) == 0 {
		return nil, AppendCondition{}, newProgrammingError("Project", errNoProjectors)
	}

	states := make(map[string]any, len(projectors))
	items := make([]QueryItem, 0, len(projectors))
	highest := int64(0)
	if after != nil {
		highest = *after
	}

	for _, p := range projectors {
		states[p.ID] = p.InitialState
		items = append(items, p.Query.Items...)

		events, _, err := es.Read(ctx, p.Query, after, 0)
		if err != nil {
			return nil, AppendCondition{}, err
		}
		state := p.InitialState
		for _, e := range events {
			state = p.Transition(state, e)
			if e.Position > highest {
				highest = e.Position
			}
		}
		states[p.ID] = state
	}

	condition := AppendCondition{
		FailIfEventsMatch: Query{Items: items},
		After:             &highest,
	}
	return states, condition, nil
}

var errNoProjectors = errors.New("at least one projector required")
