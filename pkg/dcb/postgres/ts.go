package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"godcb/pkg/dcb"
)

// tsEncoder implements the EncodingTS strategy: every row carries a
// tsvector built from TYPE-/TAG- prefixed tokens (one lexeme per tag/type,
// via array_to_tsvector so the parser never splits or stems them), and
// reads become a single GIN-indexed @@ tsquery match. Grounded on
// postgres_ts.py's text_vector column and NOTIFY-on-commit procedure.
type tsEncoder struct {
	table string
}

// reservedTSChars are the tsquery operator characters; any tag or type
// value containing one has it replaced with '-' before becoming a lexeme,
// so it can never be misread as an operator once embedded in a query
// string built by tokenQuery.
const reservedTSChars = ":&|()"

func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedTSChars, r) {
			return '-'
		}
		return r
	}, s)
}

func typeToken(t string) string { return "TYPE-" + sanitizeToken(t) }
func tagToken(t dcb.Tag) string { return "TAG-" + sanitizeToken(string(t)) }

func (e *tsEncoder) insert(ctx context.Context, tx pgx.Tx, events []dcb.Event) (int64, error) {
	batch := &pgx.Batch{}
	for _, ev := range events {
		tokens := make([]string, 0, len(ev.Tags)+1)
		tokens = append(tokens, typeToken(ev.Type))
		for _, t := range ev.Tags {
			tokens = append(tokens, tagToken(t))
		}
		tagStrings := make([]string, len(ev.Tags))
		for i, t := range ev.Tags {
			tagStrings[i] = string(t)
		}
		batch.Queue(
			fmt.Sprintf(`INSERT INTO %s (type, data, tags, text_vector, causation_id, correlation_id) VALUES ($1, $2, $3, array_to_tsvector($4), $5, $6) RETURNING position`, e.table),
			ev.Type, ev.Data, tagStrings, tokens, ev.CausationID, ev.CorrelationID,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	var last int64
	for range events {
		if err := br.QueryRow().Scan(&last); err != nil {
			return 0, err
		}
	}
	return last, nil
}

// tokenQuery builds a tsquery string matching q: items are ORed, each
// item's type alternatives and required tags are ANDed together. Every token
// is quoted so that read's ::tsquery cast takes it verbatim, exactly as
// array_to_tsvector stored it. A query with no items, or any item with
// neither types nor tags, matches everything and is reported via matchesAll
// instead of a tsquery string.
func tokenQuery(q dcb.Query) (queryString string, matchesAll bool) {
	if len(q.Items) == 0 {
		return "", true
	}
	quote := func(token string) string {
		return "'" + strings.NewReplacer(`'`, `''`, `\`, `\\`).Replace(token) + "'"
	}

	clauses := make([]string, 0, len(q.Items))
	for _, item := range q.Items {
		if len(item.Types) == 0 && len(item.Tags) == 0 {
			return "", true
		}
		parts := make([]string, 0, 2)
		if len(item.Types) > 0 {
			alts := make([]string, len(item.Types))
			for i, t := range item.Types {
				alts[i] = quote(typeToken(t))
			}
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
		for _, t := range item.Tags {
			parts = append(parts, quote(tagToken(t)))
		}
		clauses = append(clauses, "("+strings.Join(parts, " & ")+")")
	}
	return strings.Join(clauses, " | "), false
}

func (e *tsEncoder) read(ctx context.Context, db dbTx, query dcb.Query, after *int64, limit int) ([]dcb.SequencedEvent, error) {
	tsQuery, matchesAll := tokenQuery(query)

	sql := fmt.Sprintf(`SELECT position, type, data, tags, causation_id, correlation_id FROM %s WHERE position > $1`, e.table)
	args := []any{int64Value(after)}
	argN := 2
	if !matchesAll {
		sql += fmt.Sprintf(` AND text_vector @@ $%d::tsquery`, argN)
		args = append(args, tsQuery)
		argN++
	}
	sql += " ORDER BY position ASC"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, limit)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dcb.SequencedEvent
	for rows.Next() {
		var position int64
		var eventType string
		var data []byte
		var tags []string
		var causationID, correlationID string
		if err := rows.Scan(&position, &eventType, &data, &tags, &causationID, &correlationID); err != nil {
			return nil, err
		}
		out = append(out, dcb.SequencedEvent{
			Event: dcb.Event{
				Type: eventType, Data: data, Tags: dcb.Tags(tags...),
				CausationID: causationID, CorrelationID: correlationID,
			},
			ID:       dcb.NewEventID(dcb.Tags(tags...)),
			Position: position,
		})
	}
	return out, rows.Err()
}

func (e *tsEncoder) head(ctx context.Context, db dbTx) (int64, error) {
	var head *int64
	err := db.QueryRow(ctx, fmt.Sprintf("SELECT MAX(position) FROM %s", e.table)).Scan(&head)
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, nil
	}
	return *head, nil
}

func int64Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
