package dcb

import "context"

// Selector is a caller-level consistency-boundary selector: a type list
// plus a tag list, compiled into a QueryItem by the facade rather than
// handed to Recorder directly. An empty Selector (no types, no tags)
// matches every event.
type Selector struct {
	Types []string
	Tags  []Tag
}

func (s Selector) toQueryItem() QueryItem {
	return NewQueryItem(s.Types, s.Tags)
}

// Facade is the typed put/get surface applications code against instead of
// the raw Recorder: it translates Selectors into Query/AppendCondition and
// delegates (type, data, tags) <-> DomainEvent conversion to a Mapper, so
// callers never touch a raw Event.
type Facade struct {
	recorder Recorder
	mapper   *Mapper
}

// NewFacade builds a Facade over recorder using mapper for encode/decode.
func NewFacade(recorder Recorder, mapper *Mapper) *Facade {
	return &Facade{recorder: recorder, mapper: mapper}
}

// Put encodes events through the mapper and appends them, compiling cb and
// after into the Recorder's AppendCondition:
//   - neither cb nor after set: unconditional append.
//   - after set, cb empty: fail if anything matching an all-events query was
//     committed after that position.
//   - cb set: each selector becomes a QueryItem, ORed into a single Query
//     used as the fail-condition (After is still whatever after was passed,
//     nil meaning from the start of the log).
func (f *Facade) Put(ctx context.Context, events []DomainEvent, cb []Selector, after *int64) (int64, error) {
	stored := make([]Event, len(events))
	for i, evt := range events {
		e, err := f.mapper.ToStore(evt)
		if err != nil {
			return 0, err
		}
		stored[i] = e
	}

	var condition *AppendCondition
	switch {
	case len(cb) == 0 && after == nil:
		condition = nil
	case len(cb) == 0:
		condition = &AppendCondition{FailIfEventsMatch: QueryAll(), After: after}
	default:
		items := make([]QueryItem, len(cb))
		for i, s := range cb {
			items[i] = s.toQueryItem()
		}
		condition = &AppendCondition{FailIfEventsMatch: NewQuery(items...), After: after}
	}

	return f.recorder.Append(ctx, stored, condition)
}

// GetResult is Get's return value. Events is always populated; Positions
// mirrors it one-to-one when withPositions was requested; Head carries the
// cursor Read reported when withLastPosition was requested.
type GetResult struct {
	Events    []DomainEvent
	Positions []int64
	Head      *int64
}

// Get compiles cb into a Query exactly as Put does (ORed selectors, or
// match-all when cb is empty), reads matching events after the given
// position, and decodes them through the mapper. Positions/Head are only
// populated when withPositions/withLastPosition ask for them, so a caller
// that only wants events pays nothing extra for the bookkeeping.
func (f *Facade) Get(ctx context.Context, cb []Selector, after *int64, withPositions, withLastPosition bool) (GetResult, error) {
	var query Query
	if len(cb) == 0 {
		query = QueryAll()
	} else {
		items := make([]QueryItem, len(cb))
		for i, s := range cb {
			items[i] = s.toQueryItem()
		}
		query = NewQuery(items...)
	}

	sequenced, head, err := f.recorder.Read(ctx, query, after, 0)
	if err != nil {
		return GetResult{}, err
	}

	result := GetResult{Events: make([]DomainEvent, len(sequenced))}
	if withPositions {
		result.Positions = make([]int64, len(sequenced))
	}
	for i, rec := range sequenced {
		evt, err := f.mapper.ToDomain(rec.Event)
		if err != nil {
			return GetResult{}, err
		}
		result.Events[i] = evt
		if withPositions {
			result.Positions[i] = rec.Position
		}
	}
	if withLastPosition {
		result.Head = head
	}
	return result, nil
}
