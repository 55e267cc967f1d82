package dcb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godcb/pkg/dcb"
	"godcb/pkg/dcb/memory"
)

type courseDefined struct {
	CourseID string `json:"course_id"`
}

func (e *courseDefined) EventType() string    { return "CourseDefined" }
func (e *courseDefined) EventTags() []dcb.Tag { return dcb.Tags("course-" + e.CourseID) }

func newTestFacade() *dcb.Facade {
	return dcb.NewFacade(memory.New(), newStudentMapper())
}

func TestFacadePutUnconditionalAppendsRegardlessOfPriorEvents(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	_, err := f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada"}}, nil, nil)
	require.NoError(t, err)

	pos, err := f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S2", Name: "Grace"}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
}

func TestFacadePutWithCbRejectsConflictingAppend(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	_, err := f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada"}}, nil, nil)
	require.NoError(t, err)

	cb := []dcb.Selector{{Types: []string{"StudentRegistered"}, Tags: dcb.Tags("student-S1")}}
	_, err = f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada Lovelace"}}, cb, nil)
	require.Error(t, err)
	assert.True(t, dcb.IsIntegrityError(err))
}

func TestFacadePutWithAfterCoveringTheMatchSucceeds(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	head, err := f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada"}}, nil, nil)
	require.NoError(t, err)

	cb := []dcb.Selector{{Types: []string{"StudentRegistered"}, Tags: dcb.Tags("student-S1")}}
	_, err = f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada Lovelace"}}, cb, &head)
	assert.NoError(t, err)
}

func TestFacadeGetDecodesEventsThroughTheMapper(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	_, err := f.Put(ctx, []dcb.DomainEvent{
		&studentRegistered{StudentID: "S1", Name: "Ada"},
		&studentRegistered{StudentID: "S2", Name: "Grace"},
	}, nil, nil)
	require.NoError(t, err)

	result, err := f.Get(ctx, nil, nil, false, false)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Nil(t, result.Positions)
	assert.Nil(t, result.Head)

	got, ok := result.Events[0].(*studentRegistered)
	require.True(t, ok)
	assert.Equal(t, "S1", got.StudentID)
}

func TestFacadeGetWithPositionsAndLastPosition(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	_, err := f.Put(ctx, []dcb.DomainEvent{&studentRegistered{StudentID: "S1", Name: "Ada"}}, nil, nil)
	require.NoError(t, err)

	result, err := f.Get(ctx, nil, nil, true, true)
	require.NoError(t, err)
	require.Len(t, result.Positions, 1)
	assert.Equal(t, int64(1), result.Positions[0])
	require.NotNil(t, result.Head)
	assert.Equal(t, int64(1), *result.Head)
}

func TestFacadeGetWithCbSelectsOnlyMatchingEvents(t *testing.T) {
	f := newTestFacade()
	ctx := context.Background()

	mapper := dcb.NewMapper()
	mapper.Register("StudentRegistered", func() dcb.DomainEvent { return &studentRegistered{} })
	mapper.Register("CourseDefined", func() dcb.DomainEvent { return &courseDefined{} })
	f = dcb.NewFacade(memory.New(), mapper)

	_, err := f.Put(ctx, []dcb.DomainEvent{
		&studentRegistered{StudentID: "S1", Name: "Ada"},
		&courseDefined{CourseID: "C1"},
	}, nil, nil)
	require.NoError(t, err)

	result, err := f.Get(ctx, []dcb.Selector{{Types: []string{"CourseDefined"}}}, nil, false, false)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	_, ok := result.Events[0].(*courseDefined)
	assert.True(t, ok)
}
