package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"godcb/pkg/dcb"
)

// ttEncoder implements the EncodingTT strategy: events live in a main table
// and their tags live in a side table indexed by (tag, main_id); a read
// joins the two, requiring every tag in a QueryItem to be present via a
// GROUP BY/HAVING COUNT(DISTINCT tag) match. Grounded on postgres_tt.py's
// main/tag table split and its matched_groups CTE.
type ttEncoder struct {
	table string
}

func (e *ttEncoder) mainTable() string { return e.table + "_tt_main" }
func (e *ttEncoder) tagTable() string  { return e.table + "_tt_tag" }

func (e *ttEncoder) insert(ctx context.Context, tx pgx.Tx, events []dcb.Event) (int64, error) {
	var last int64
	for _, ev := range events {
		tagStrings := make([]string, len(ev.Tags))
		for i, t := range ev.Tags {
			tagStrings[i] = string(t)
		}

		var id int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO %s (type, data, tags, causation_id, correlation_id) VALUES ($1, $2, $3, $4, $5) RETURNING id`, e.mainTable()),
			ev.Type, ev.Data, tagStrings, ev.CausationID, ev.CorrelationID,
		).Scan(&id)
		if err != nil {
			return 0, err
		}

		if len(ev.Tags) > 0 {
			batch := &pgx.Batch{}
			for _, t := range ev.Tags {
				batch.Queue(
					fmt.Sprintf(`INSERT INTO %s (tag, type, main_id) VALUES ($1, $2, $3)`, e.tagTable()),
					string(t), ev.Type, id,
				)
			}
			br := tx.SendBatch(ctx, batch)
			for range ev.Tags {
				if _, err := br.Exec(); err != nil {
					br.Close()
					return 0, err
				}
			}
			if err := br.Close(); err != nil {
				return 0, err
			}
		}
		last = id
	}
	return last, nil
}

// itemSQL returns a subquery selecting the ids of main-table rows matching
// a single QueryItem, plus the args it consumes starting at argN.
func (e *ttEncoder) itemSQL(item dcb.QueryItem, argN int) (sql string, args []any, nextArgN int) {
	args = []any{}
	var typeFilter string
	if len(item.Types) > 0 {
		typeFilter = fmt.Sprintf(" AND type = ANY($%d::text[])", argN)
		strs := make([]string, len(item.Types))
		copy(strs, item.Types)
		args = append(args, strs)
		argN++
	}

	if len(item.Tags) == 0 {
		sql = fmt.Sprintf("SELECT id FROM %s WHERE true%s", e.mainTable(), typeFilter)
		return sql, args, argN
	}

	tagStrings := make([]string, len(item.Tags))
	for i, t := range item.Tags {
		tagStrings[i] = string(t)
	}
	sql = fmt.Sprintf(`
SELECT main_id AS id FROM %s
WHERE tag = ANY($%d::text[])
GROUP BY main_id
HAVING COUNT(DISTINCT tag) = %d`, e.tagTable(), argN, len(item.Tags))
	args = append(args, tagStrings)
	argN++

	if typeFilter != "" {
		sql = fmt.Sprintf(`SELECT m.id FROM %s m JOIN (%s) matched ON matched.id = m.id WHERE true%s`, e.mainTable(), sql, typeFilter)
	}
	return sql, args, argN
}

func (e *ttEncoder) read(ctx context.Context, db dbTx, query dcb.Query, after *int64, limit int) ([]dcb.SequencedEvent, error) {
	var idSQL string
	args := []any{int64Value(after)}
	argN := 2

	if len(query.Items) == 0 {
		idSQL = fmt.Sprintf("SELECT id FROM %s", e.mainTable())
	} else {
		matchesAll := false
		for _, item := range query.Items {
			if len(item.Types) == 0 && len(item.Tags) == 0 {
				matchesAll = true
				break
			}
		}
		if matchesAll {
			idSQL = fmt.Sprintf("SELECT id FROM %s", e.mainTable())
		} else {
			subqueries := make([]string, len(query.Items))
			for i, item := range query.Items {
				var sql string
				var itemArgs []any
				sql, itemArgs, argN = e.itemSQL(item, argN)
				subqueries[i] = sql
				args = append(args, itemArgs...)
			}
			idSQL = strings.Join(subqueries, " UNION ")
		}
	}

	sql := fmt.Sprintf(`
SELECT m.id, m.type, m.data, m.tags, m.causation_id, m.correlation_id
FROM %s m
JOIN (%s) matched ON matched.id = m.id
WHERE m.id > $1
ORDER BY m.id ASC`, e.mainTable(), idSQL)
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
		var id int64
		var eventType string
		var data []byte
		var tags []string
		var causationID, correlationID string
		if err := rows.Scan(&id, &eventType, &data, &tags, &causationID, &correlationID); err != nil {
			return nil, err
		}
		out = append(out, dcb.SequencedEvent{
			Event: dcb.Event{
				Type: eventType, Data: data, Tags: dcb.Tags(tags...),
				CausationID: causationID, CorrelationID: correlationID,
			},
			ID:       dcb.NewEventID(dcb.Tags(tags...)),
			Position: id,
		})
	}
	return out, rows.Err()
}

func (e *ttEncoder) head(ctx context.Context, db dbTx) (int64, error) {
	var head *int64
	err := db.QueryRow(ctx, fmt.Sprintf("SELECT MAX(id) FROM %s", e.mainTable())).Scan(&head)
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, nil
	}
	return *head, nil
}
