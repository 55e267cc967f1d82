package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config configures a postgres-backed dcb.Recorder. Field names and
// defaults follow the environment-variable conventions of the system this
// store was modeled on (POSTGRES_DBNAME, POSTGRES_LOCK_TIMEOUT, ...),
// expressed as Go struct fields instead of getenv lookups.
type Config struct {
	// DSN is a full libpq connection string; when set it takes precedence
	// over the discrete Host/Port/... fields.
	DSN string `validate:"required_without=Host"`

	Host     string `validate:"required_without=DSN"`
	Port     int    `validate:"omitempty,min=1,max=65535"`
	Database string `validate:"required_without=DSN"`
	User     string `validate:"required_without=DSN"`
	Password string

	// GetPassword, when set, is called before opening each new physical
	// connection instead of using Password directly, so a rotated secret
	// takes effect without restarting the process holding this Recorder.
	GetPassword func(ctx context.Context) (string, error)

	// Schema namespaces the tables/indexes this recorder creates and uses.
	// Empty or all-whitespace is coerced to "public".
	Schema string `validate:"omitempty,max=63"`

	// PoolSize is the pool's steady-state connection count
	// (pgxpool.Config.MinConns). Default 5.
	PoolSize int32 `validate:"omitempty,min=1"`

	// MaxOverflow is how far the pool may grow past PoolSize under load;
	// pgxpool.Config.MaxConns is set to PoolSize+MaxOverflow. Default 10.
	MaxOverflow int32 `validate:"omitempty,min=0"`

	// MaxWaiting bounds how many Recorder operations may be in flight at
	// once, counting both those waiting for a connection and those already
	// using one (see waitGate). A caller beyond that is turned away
	// immediately with an OperationalError instead of queueing indefinitely
	// behind pgxpool's own acquire queue. Zero (the default) sets no bound.
	MaxWaiting int `validate:"omitempty,min=0"`

	// ConnectTimeout bounds establishing a new physical connection. Default
	// 30 seconds.
	ConnectTimeout time.Duration

	// ConnMaxAge recycles pooled connections older than this, guarding
	// against a load balancer or firewall silently dropping long-lived
	// connections. Zero leaves pgxpool's own default lifetime in place.
	ConnMaxAge time.Duration

	// PrePing issues a lightweight ping before handing a pooled connection
	// back to a caller, trading latency for not handing out a dead
	// connection.
	PrePing bool

	// LockTimeout bounds how long Append waits to acquire the table-level
	// append lock before giving up with an OperationalError. Zero means
	// wait indefinitely.
	LockTimeout time.Duration

	// IdleInTransactionSessionTimeout bounds how long a connection may sit
	// idle inside an open transaction before Postgres kills it server-side
	// — a backstop against a client that opened a transaction and stalled.
	// Default 5 seconds.
	IdleInTransactionSessionTimeout time.Duration

	// EventsTable names the durable table/schema objects this recorder
	// creates and uses. Defaults to "dcb_events". Bounded well under
	// Postgres's 63-byte identifier limit, leaving room for the "_tt_main"/
	// "_tt_tag" suffixes EncodingTT appends.
	EventsTable string `validate:"omitempty,max=55"`

	// SkipSchema, when true, skips the CREATE TABLE/INDEX statements
	// NewRecorder would otherwise run on startup — for deployments where a
	// separate migration tool owns the schema.
	SkipSchema bool

	// Encoding selects the durable encoding strategy: EncodingTS (tsvector,
	// one table) or EncodingTT (side tag table, join-based reads).
	Encoding Encoding `validate:"required,oneof=ts tt"`
}

// Encoding names a durable event encoding strategy.
type Encoding string

const (
	EncodingTS Encoding = "ts"
	EncodingTT Encoding = "tt"
)

// withDefaults returns a copy of c with zero-valued optional fields filled
// in.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if strings.TrimSpace(c.Schema) == "" {
		c.Schema = "public"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 5
	}
	if c.MaxOverflow == 0 {
		c.MaxOverflow = 10
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.IdleInTransactionSessionTimeout == 0 {
		c.IdleInTransactionSessionTimeout = 5 * time.Second
	}
	if c.EventsTable == "" {
		c.EventsTable = "dcb_events"
	}
	if c.Encoding == "" {
		c.Encoding = EncodingTS
	}
	return c
}

var configValidator = validator.New()

// Validate checks Config against its struct tags and returns an error
// describing the first violation, if any.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid postgres config: %w", err)
	}
	return nil
}

func (c Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s",
		c.Host, c.Port, c.Database, c.User, c.Password,
	)
}

// qualifiedTable returns table namespaced under schema, the identifier this
// recorder's SQL addresses it by.
func qualifiedTable(schema, table string) string {
	return schema + "." + table
}
