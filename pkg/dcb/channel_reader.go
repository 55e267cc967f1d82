package dcb

import "context"

// ChannelReader is implemented by recorders that can stream Read results
// incrementally over a channel instead of handing back one materialized
// slice, for callers that want to start processing before the whole result
// set is read. Optional: callers that don't need it just use Read.
type ChannelReader interface {
	// ReadChannel streams events matching query, in the same order Read
	// would return them. The error channel receives at most one error and
	// is closed alongside the event channel; a value on it means the stream
	// ended early. Canceling ctx while events are being delivered stops the
	// stream without an error; a cancellation that interrupts the underlying
	// read may instead be reported on the error channel.
	ReadChannel(ctx context.Context, query Query, after *int64) (<-chan SequencedEvent, <-chan error)
}
