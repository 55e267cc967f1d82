package dcb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"godcb/pkg/dcb"
)

func TestQueryItemMatchesByTypeAndTags(t *testing.T) {
	event := dcb.NewEvent("StudentSubscribedToCourse", dcb.Tags("student-S1", "course-C1"), nil)

	item := dcb.NewQueryItem([]string{"StudentSubscribedToCourse"}, dcb.Tags("student-S1"))
	assert.True(t, item.Matches(event))

	item = dcb.NewQueryItem([]string{"CourseDefined"}, nil)
	assert.False(t, item.Matches(event))

	item = dcb.NewQueryItem(nil, dcb.Tags("course-C2"))
	assert.False(t, item.Matches(event))
}

func TestEmptyQueryItemMatchesEverything(t *testing.T) {
	item := dcb.NewQueryItem(nil, nil)
	assert.True(t, item.Matches(dcb.NewEvent("Anything", nil, nil)))
}

func TestQueryIsDisjunctionOfItems(t *testing.T) {
	event := dcb.NewEvent("CourseDefined", dcb.Tags("course-C1"), nil)

	query := dcb.NewQuery(
		dcb.NewQueryItem([]string{"StudentRegistered"}, nil),
		dcb.NewQueryItem([]string{"CourseDefined"}, nil),
	)
	assert.True(t, query.Matches(event))

	query = dcb.NewQuery(dcb.NewQueryItem([]string{"StudentRegistered"}, nil))
	assert.False(t, query.Matches(event))
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	assert.True(t, dcb.QueryAll().Matches(dcb.NewEvent("Anything", nil, nil)))
}

// TestMatchingIsMonotonicInTags checks, over random events and tag subsets,
// that a query item requiring any prefix of an event's own tags matches
// that event: requiring more of the event's tags never turns a match into a
// non-match, as long as the item only requires tags the event actually has.
func TestMatchingIsMonotonicInTags(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		allTags := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]-[0-9]`), func(s string) string { return s }).
			Draw(t, "allTags")
		event := dcb.NewEvent("E", dcb.Tags(allTags...), nil)

		subsetSize := rapid.IntRange(0, len(allTags)).Draw(t, "subsetSize")
		subset := allTags[:subsetSize]

		item := dcb.NewQueryItem(nil, dcb.Tags(subset...))
		assert.True(t, item.Matches(event), "a query item requiring only the event's own tags must match it")
	})
}

// TestReadAfterIsExclusive documents, via the pure predicate, that After is
// a strict lower bound: an event is visible only when its position is
// greater than After, never equal to it.
func TestReadAfterIsExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		position := rapid.Int64Range(0, 1000).Draw(t, "position")
		after := position
		assert.False(t, position > after, "position must not be considered visible when equal to after")
		assert.True(t, position+1 > after, "position one past after must be considered visible")
	})
}
