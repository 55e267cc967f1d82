// Package postgres provides a durable dcb.Recorder backed by PostgreSQL,
// in two interchangeable encodings (see Config.Encoding): EncodingTS stores
// each event with a tsvector built from its type and tags and matches
// queries with a GIN-indexed tsquery; EncodingTT stores events in a main
// table plus a side tag table and matches queries with a join. Both satisfy
// the exact same dcb.Recorder contract; callers choose between them purely
// on read/write performance tradeoffs for their tag cardinality.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"godcb/pkg/dcb"
)

// dbTx is satisfied by both *pgxpool.Pool and pgx.Tx, letting read logic run
// either standalone or inside the append transaction.
type dbTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// encoder implements the storage-specific half of Recorder: how events are
// inserted and how a query is turned into matching rows, for one encoding.
type encoder interface {
	insert(ctx context.Context, tx pgx.Tx, events []dcb.Event) (int64, error)
	read(ctx context.Context, db dbTx, query dcb.Query, after *int64, limit int) ([]dcb.SequencedEvent, error)
	head(ctx context.Context, db dbTx) (int64, error)
}

// Recorder is a durable dcb.Recorder backed by PostgreSQL.
type Recorder struct {
	pool *pgxpool.Pool
	cfg  Config
	enc  encoder
	gate *waitGate
}

var (
	_ dcb.Recorder = (*Recorder)(nil)
	_ dcb.Locker   = (*Recorder)(nil)
)

// NewRecorder connects to PostgreSQL per cfg, creates the schema for its
// encoding if missing (unless cfg.SkipSchema is set), and returns a ready
// Recorder. A config that fails validation — including an identifier
// exceeding Postgres's length limit — is a caller mistake, not a backend
// fault, and is reported as a ProgrammingError.
func NewRecorder(ctx context.Context, cfg Config) (*Recorder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &dcb.ProgrammingError{EventStoreError: dcb.EventStoreError{Op: "NewRecorder", Err: err}}
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipSchema {
		if err := ensureSchema(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, classifyError("NewRecorder", err)
		}
	}

	table := qualifiedTable(cfg.Schema, cfg.EventsTable)
	var enc encoder
	switch cfg.Encoding {
	case EncodingTT:
		enc = &ttEncoder{table: table}
	default:
		enc = &tsEncoder{table: table}
	}

	return &Recorder{pool: pool, cfg: cfg, enc: enc, gate: newWaitGate(cfg.MaxWaiting)}, nil
}

// Close releases the underlying connection pool.
func (r *Recorder) Close() {
	r.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for advanced integrations
// (custom transactions, migrations) that need to share the connection pool.
// Regular application code should go through the Recorder/EventStore API.
func (r *Recorder) Pool() *pgxpool.Pool {
	return r.pool
}

// Append implements dcb.Recorder. It serializes concurrent appends with a
// table-level EXCLUSIVE MODE lock bounded by Config.LockTimeout, rather than
// SERIALIZABLE-isolation-plus-retry: this makes conflicts deterministic (the
// second writer blocks, then re-checks, rather than racing to commit and
// discovering a serialization failure after the fact).
func (r *Recorder) Append(ctx context.Context, events []dcb.Event, condition *dcb.AppendCondition) (int64, error) {
	if len(events) == 0 {
		return 0, &dcb.ProgrammingError{
			EventStoreError: dcb.EventStoreError{Op: "Append", Err: errNoEvents},
		}
	}
	for i, e := range events {
		if e.Type == "" {
			return 0, &dcb.DataError{
				EventStoreError: dcb.EventStoreError{Op: "Append", Err: fmt.Errorf("event at index %d has empty type", i)},
				Field:           "type",
			}
		}
	}

	release, err := r.gate.enter("Append")
	if err != nil {
		return 0, err
	}
	defer release()

	// Only connection establishment is retried: nothing has been written
	// yet at this point, so replaying it on a dropped connection is safe.
	// Once BeginTx succeeds, a failure past this point is reported as-is —
	// retrying after a possible Commit would risk double-appending.
	var tx pgx.Tx
	err = withInterfaceRetry(ctx, func() error {
		var err error
		tx, err = r.pool.BeginTx(ctx, pgx.TxOptions{})
		return classifyError("Append", err)
	})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := r.lockTable(ctx, tx); err != nil {
		return 0, err
	}

	if condition != nil {
		matches, err := r.enc.read(ctx, tx, condition.FailIfEventsMatch, condition.After, 1)
		if err != nil {
			return 0, classifyError("Append", err)
		}
		if len(matches) > 0 {
			return 0, &dcb.IntegrityError{
				EventStoreError:  dcb.EventStoreError{Op: "Append", Err: errConditionViolated},
				ConflictPosition: matches[0].Position,
			}
		}
	}

	last, err := r.enc.insert(ctx, tx, events)
	if err != nil {
		return 0, classifyError("Append", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classifyError("Append", err)
	}

	r.notify(ctx, last)
	return last, nil
}

// lockTable acquires the append-serializing lock within tx, honoring
// Config.LockTimeout via SET LOCAL lock_timeout.
func (r *Recorder) lockTable(ctx context.Context, tx pgx.Tx) error {
	if r.cfg.LockTimeout > 0 {
		ms := r.cfg.LockTimeout.Milliseconds()
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
			return classifyError("Append", err)
		}
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("LOCK TABLE %s IN EXCLUSIVE MODE", r.lockTarget())); err != nil {
		return classifyError("Append", err)
	}
	return nil
}

func (r *Recorder) lockTarget() string {
	table := qualifiedTable(r.cfg.Schema, r.cfg.EventsTable)
	if r.cfg.Encoding == EncodingTT {
		return table + "_tt_main"
	}
	return table
}

// Read implements dcb.Recorder. Connection-level failures are retried a
// bounded number of times (see withInterfaceRetry); a read never has
// side effects, so retrying it outright is always safe.
//
// When limit <= 0, head reports the true current tail of the whole log.
// When limit > 0, head instead reports the position of the last event this
// call actually returned (nil if it returned none) — a cursor the caller can
// feed back as after on the next call to resume exactly where this one
// stopped, rather than racing against events appended in between.
func (r *Recorder) Read(ctx context.Context, query dcb.Query, after *int64, limit int) ([]dcb.SequencedEvent, *int64, error) {
	release, err := r.gate.enter("Read")
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var events []dcb.SequencedEvent
	err = withInterfaceRetry(ctx, func() error {
		var err error
		events, err = r.enc.read(ctx, r.pool, query, after, limit)
		if err != nil {
			return classifyError("Read", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if limit > 0 {
		if len(events) == 0 {
			return events, nil, nil
		}
		last := events[len(events)-1].Position
		return events, &last, nil
	}

	var head int64
	err = withInterfaceRetry(ctx, func() error {
		var err error
		head, err = r.enc.head(ctx, r.pool)
		if err != nil {
			return classifyError("Read", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if head == 0 {
		return events, nil, nil
	}
	return events, &head, nil
}

// Head implements dcb.Recorder.
func (r *Recorder) Head(ctx context.Context) (int64, error) {
	release, err := r.gate.enter("Head")
	if err != nil {
		return 0, err
	}
	defer release()

	var head int64
	err = withInterfaceRetry(ctx, func() error {
		var err error
		head, err = r.enc.head(ctx, r.pool)
		if err != nil {
			return classifyError("Head", err)
		}
		return nil
	})
	return head, err
}

var (
	errNoEvents          = fmt.Errorf("at least one event is required")
	errConditionViolated = fmt.Errorf("append condition violated by a later event")
)
