package postgres

import (
	"context"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5"

	"godcb/pkg/dcb"
)

// notifyChannel is the LISTEN/NOTIFY channel name, grounded on postgres_ts.py's
// `NOTIFY {channel}` statement fired inside the append procedure after a
// successful commit.
const notifyChannel = "dcb_events_appended"

var _ dcb.Notifier = (*Recorder)(nil)

// notify fires a best-effort NOTIFY on the shared pool; a failure to notify
// (e.g. the pool being momentarily exhausted) is logged and never fails the
// Append that already committed. The payload carries the new head position;
// a subscriber that can't parse it (or never receives it) just re-Reads,
// so a lost or garbled notification is never a lost event.
func (r *Recorder) notify(ctx context.Context, position int64) {
	if _, err := r.pool.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, strconv.FormatInt(position, 10)); err != nil {
		log.Printf("dcb/postgres: notify after append failed: %v", err)
	}
}

// Subscribe implements dcb.Notifier using a connection opened outside the
// shared pool and held open with LISTEN for the lifetime of ctx. A pooled
// connection would sit checked out of r.pool for as long as the
// subscription lives, starving Append/Read under Config's PoolSize instead
// of leaving them the whole pool to themselves. Each notification means
// "something was appended, re-read from your last known position" — it
// carries only the new head position (0 if the payload does not parse),
// never the events themselves, so a missed notification is never a missed
// event: the subscriber always has to re-Read to find out what changed.
func (r *Recorder) Subscribe(ctx context.Context) (<-chan dcb.AppendNotification, error) {
	connCfg, err := pgx.ParseConfig(r.cfg.connString())
	if err != nil {
		return nil, &dcb.DataError{
			EventStoreError: dcb.EventStoreError{Op: "Subscribe", Err: err},
			Field:           "dsn",
		}
	}
	if r.cfg.GetPassword != nil {
		password, err := r.cfg.GetPassword(ctx)
		if err != nil {
			return nil, classifyError("Subscribe", err)
		}
		connCfg.Password = password
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, classifyError("Subscribe", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Close(context.Background())
		return nil, classifyError("Subscribe", err)
	}

	ch := make(chan dcb.AppendNotification)
	go func() {
		defer conn.Close(context.Background())
		defer close(ch)
		for {
			notification, err := conn.WaitForNotification(ctx)
			if err != nil {
				return
			}
			position, err := strconv.ParseInt(notification.Payload, 10, 64)
			if err != nil {
				log.Printf("dcb/postgres: notification with unparsable payload %q: %v", notification.Payload, err)
			}
			select {
			case ch <- dcb.AppendNotification{Position: position}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
