// Package dcb implements a Dynamic Consistency Boundary event store: a single
// globally-ordered event log whose append-time consistency checks are
// arbitrary type+tag predicates instead of per-aggregate version streams.
package dcb

// Tag is a short string attached to an event for selection purposes. Tags are
// a surrogate for entity identity; an event with tags {"account-A", "account-B"}
// can be selected by either tag without a dedicated stream per account.
type Tag string

// Event is the immutable unit appended to the store. Data is opaque to the
// store: encoding is the mapper's concern (see Mapper). CausationID and
// CorrelationID are caller-supplied bookkeeping (see EventContext); they
// ride alongside the event but are never part of query matching.
type Event struct {
	Type          string
	Data          []byte
	Tags          []Tag
	CausationID   string
	CorrelationID string
}

// SequencedEvent is an Event plus the position the store assigned it at
// commit time.
type SequencedEvent struct {
	Event

	// ID is a sortable, prefixed identifier distinct from Position; it exists
	// for debugging and cross-referencing, never for matching or ordering.
	ID string

	// Position is the store-assigned sequence number. Strictly positive,
	// strictly increasing across the whole log; gaps are permitted.
	Position int64
}

// QueryItem is one atomic selection: an event matches it if the event's type
// is in Types (or Types is empty) AND every tag in Tags is present on the
// event. See Query for how items combine.
type QueryItem struct {
	Types []string
	Tags  []Tag
}

// Query is a disjunction ("OR") of QueryItems. An empty Query (no items)
// matches every event.
type Query struct {
	Items []QueryItem
}

// AppendCondition guards an Append: if any event committed after the
// position named by After matches FailIfEventsMatch, the append is rejected
// with an IntegrityError and nothing is written.
//
// After == nil means "from the beginning of the log" (position 0). There is
// no separate "no condition" sentinel in this type: passing a nil
// *AppendCondition to Append means unconditional append. No `-1` sentinel
// is used anywhere: the postgres package turns a nil After into 0 at the
// SQL boundary.
type AppendCondition struct {
	FailIfEventsMatch Query
	After             *int64
}

// Matches reports whether an event satisfies a single QueryItem: its type is
// among Types (or Types is empty), and every tag in Tags is present on the
// event's tag set.
func (qi QueryItem) Matches(e Event) bool {
	if len(qi.Types) > 0 {
		found := false
		for _, t := range qi.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(qi.Tags) == 0 {
		return true
	}
	have := make(map[Tag]struct{}, len(e.Tags))
	for _, t := range e.Tags {
		have[t] = struct{}{}
	}
	for _, want := range qi.Tags {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

// Matches reports whether an event satisfies the query: an empty query
// matches everything, otherwise the event must match at least one item.
func (q Query) Matches(e Event) bool {
	if len(q.Items) == 0 {
		return true
	}
	for _, item := range q.Items {
		if item.Matches(e) {
			return true
		}
	}
	return false
}

// QueryAll returns a Query that matches every event.
func QueryAll() Query {
	return Query{}
}

// NewQueryItem builds a QueryItem from explicit types and tags. Either may be
// nil/empty.
func NewQueryItem(types []string, tags []Tag) QueryItem {
	return QueryItem{Types: types, Tags: tags}
}

// NewQuery builds a Query out of one or more items, ORed together.
func NewQuery(items ...QueryItem) Query {
	return Query{Items: items}
}

// Tags is a convenience constructor turning plain strings into a []Tag slice.
func Tags(values ...string) []Tag {
	tags := make([]Tag, len(values))
	for i, v := range values {
		tags[i] = Tag(v)
	}
	return tags
}
