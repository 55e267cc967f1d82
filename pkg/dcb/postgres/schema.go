package postgres

import (
	"context"
	"fmt"
)

// ddlTS creates the single tsvector-indexed events table used by EncodingTS.
// Grounded on the original's dcb_events table + GIN index over text_vector.
// qualified is the schema-qualified table ("schema.table"), used wherever
// Postgres expects a table reference; bare is the unqualified name, used to
// build index identifiers (which cannot themselves contain a schema dot).
func ddlTS(qualified, bare string) []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	position        bigserial PRIMARY KEY,
	type            text NOT NULL,
	data            bytea,
	tags            text[] NOT NULL,
	text_vector     tsvector NOT NULL,
	causation_id    text NOT NULL DEFAULT '',
	correlation_id  text NOT NULL DEFAULT '',
	created_at      timestamptz NOT NULL DEFAULT now()
)`, qualified),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_text_vector_idx ON %s USING GIN (text_vector)`, bare, qualified),
	}
}

// ddlTT creates the main events table plus the side tag table used by
// EncodingTT, grounded on postgres_tt.py's dcb_events_tt_main/_tag split.
func ddlTT(qualified, bare string) []string {
	mainTable := qualified + "_tt_main"
	tagTable := qualified + "_tt_tag"
	bareMain := bare + "_tt_main"
	bareTag := bare + "_tt_tag"
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id              bigserial PRIMARY KEY,
	type            text NOT NULL,
	data            bytea,
	tags            text[] NOT NULL,
	causation_id    text NOT NULL DEFAULT '',
	correlation_id  text NOT NULL DEFAULT '',
	created_at      timestamptz NOT NULL DEFAULT now()
)`, mainTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	tag      text NOT NULL,
	type     text NOT NULL,
	main_id  bigint NOT NULL REFERENCES %s (id)
)`, tagTable, mainTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tag_main_id_idx ON %s (tag, main_id)`, bareTag, tagTable),
	}
}

// ensureSchema runs the CREATE SCHEMA/TABLE/INDEX statements for cfg's
// encoding. Every statement is idempotent (IF NOT EXISTS), so this is safe
// to call on every process start.
func ensureSchema(ctx context.Context, db dbTx, cfg Config) error {
	var statements []string
	if cfg.Schema != "" && cfg.Schema != "public" {
		statements = append(statements, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cfg.Schema))
	}

	qualified := qualifiedTable(cfg.Schema, cfg.EventsTable)
	switch cfg.Encoding {
	case EncodingTT:
		statements = append(statements, ddlTT(qualified, cfg.EventsTable)...)
	default:
		statements = append(statements, ddlTS(qualified, cfg.EventsTable)...)
	}
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensureSchema: %w", err)
		}
	}
	return nil
}
