package postgres

import (
	"errors"

	"godcb/pkg/dcb"
)

// waitGate implements Config.MaxWaiting by bounding how many Recorder
// operations (Append, Read, Head) may be in flight at once: each holds a slot
// for its whole duration, whether it is waiting for a pooled connection or
// already using one. Callers actually queued in pgxpool's Acquire are not
// counted separately. A caller beyond the gate's capacity is turned away
// immediately with OperationalError instead of queueing indefinitely.
type waitGate struct {
	slots chan struct{}
}

// newWaitGate returns nil (disabled) when maxWaiting <= 0.
func newWaitGate(maxWaiting int) *waitGate {
	if maxWaiting <= 0 {
		return nil
	}
	return &waitGate{slots: make(chan struct{}, maxWaiting)}
}

var errPoolExhausted = errors.New("connection pool waiting room is full")

// enter reserves a waiting slot for op, returning a release function to call
// once the caller is done with the pool. A nil gate always succeeds.
func (g *waitGate) enter(op string) (release func(), err error) {
	if g == nil {
		return func() {}, nil
	}
	select {
	case g.slots <- struct{}{}:
		return func() { <-g.slots }, nil
	default:
		return nil, &dcb.OperationalError{EventStoreError: dcb.EventStoreError{Op: op, Err: errPoolExhausted}}
	}
}
