package postgres

import (
	"context"

	"godcb/pkg/dcb"
)

var _ dcb.ChannelReader = (*Recorder)(nil)

// ReadChannel implements dcb.ChannelReader. Scoped to small and medium
// result sets rather than a true server-side cursor: it streams an
// already-materialized Read result over a buffered channel, giving callers
// the same incremental, cancelable consumption pattern without a second SQL
// execution path to keep in sync with the TS/TT encoders.
func (r *Recorder) ReadChannel(ctx context.Context, query dcb.Query, after *int64) (<-chan dcb.SequencedEvent, <-chan error) {
	out := make(chan dcb.SequencedEvent, 100)
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
