package postgres

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"godcb/pkg/dcb"
)

// withInterfaceRetry retries fn up to 10 times, 200ms apart, but only when
// it fails with a dcb.InterfaceError — a lost or never-established
// connection, which by definition happened before any write took effect.
func withInterfaceRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(dcb.IsInterfaceError),
		retry.LastErrorOnly(true),
	)
}
