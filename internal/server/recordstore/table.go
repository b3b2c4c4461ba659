package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/google/uuid"
)

// Table is a typed accessor for one table.
type Table[T any, P Row[T]] struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	name    string
	columns []string
	known   map[string]bool
	logger  logging.Logger

	now   func() time.Time
	newID func() string
}

// NewTable binds entity T to table name.
func NewTable[T any, P Row[T]](db dbx.DBTX, dialect dbx.Dialect, name string, logger logging.Logger) *Table[T, P] {
	cols := P(new(T)).Columns()
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	return &Table[T, P]{
		db:      db,
		dialect: dialect,
		name:    name,
		columns: cols,
		known:   known,
		logger:  logger.With("module", "recordstore", "table", name),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

// Name returns the table name.
func (t *Table[T, P]) Name() string { return t.name }

// GetByID returns the row with the given id, or nil when it does not exist
// or the call failed.
func (t *Table[T, P]) GetByID(ctx context.Context, id string) P {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", t.columnList(), t.name, t.dialect.Placeholder(1))

	rec := P(new(T))
	err := t.db.QueryRowContext(ctx, query, id).Scan(rec.ScanDest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		t.fail(ctx, "get_by_id", err)
		return nil
	}
	return rec
}

// List returns rows matching q.
func (t *Table[T, P]) List(ctx context.Context, q Query) []P {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		where []string
		args  []any
	)
	for _, k := range keys {
		if !t.known[k] {
			t.fail(ctx, "list", fmt.Errorf("unknown column %q", k))
			return nil
		}
		v := q.Filters[k]
		if v == nil {
			where = append(where, k+" IS NULL")
			continue
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = %s", k, t.dialect.Placeholder(len(args))))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", t.columnList(), t.name)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if err := t.writeOrder(&b, q.OrderBy, q.Desc); err != nil {
		t.fail(ctx, "list", err)
		return nil
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return t.query(ctx, "list", b.String(), args...)
}

// ListWhereIn returns rows whose field is one of values. An empty value set
// matches nothing and does not reach the database.
func (t *Table[T, P]) ListWhereIn(ctx context.Context, field string, values []string, orderBy string, desc bool) []P {
	if !t.known[field] {
		t.fail(ctx, "list_where_in", fmt.Errorf("unknown column %q", field))
		return nil
	}
	if len(values) == 0 {
		return []P{}
	}

	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = t.dialect.Placeholder(i + 1)
		args[i] = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s IN (%s)", t.columnList(), t.name, field, strings.Join(marks, ", "))
	if err := t.writeOrder(&b, orderBy, desc); err != nil {
		t.fail(ctx, "list_where_in", err)
		return nil
	}

	return t.query(ctx, "list_where_in", b.String(), args...)
}

// Insert writes rec and returns the stored row. An empty id is replaced by
// a fresh UUID.
func (t *Table[T, P]) Insert(ctx context.Context, rec P) P {
	if rec.RecordID() == "" {
		rec.SetRecordID(t.newID())
	}
	if s, ok := any(rec).(Stamper); ok {
		s.Stamp(t.now())
	}

	marks := make([]string, len(t.columns))
	for i := range t.columns {
		marks[i] = t.dialect.Placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, t.columnList(), strings.Join(marks, ", "))

	if !t.returning() {
		if _, err := t.db.ExecContext(ctx, query, rec.Values()...); err != nil {
			t.fail(ctx, "insert", err)
			return nil
		}
		return rec
	}

	out := P(new(T))
	if err := t.db.QueryRowContext(ctx, query+" RETURNING "+t.columnList(), rec.Values()...).Scan(out.ScanDest()...); err != nil {
		t.fail(ctx, "insert", err)
		return nil
	}
	return out
}

// UpdateByID assigns fields on the row with the given id and returns the
// updated row, or nil when nothing was updated.
func (t *Table[T, P]) UpdateByID(ctx context.Context, id string, fields Fields) P {
	if len(fields) == 0 {
		t.fail(ctx, "update_by_id", errors.New("no fields to update"))
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !t.known[k] || k == "id" {
			t.fail(ctx, "update_by_id", fmt.Errorf("column %q cannot be updated", k))
			return nil
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		args = append(args, fields[k])
		sets[i] = fmt.Sprintf("%s = %s", k, t.dialect.Placeholder(len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		t.name, strings.Join(sets, ", "), t.dialect.Placeholder(len(args)))

	if !t.returning() {
		res, err := t.db.ExecContext(ctx, query, args...)
		if err != nil {
			t.fail(ctx, "update_by_id", err)
			return nil
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return nil
		}
		return t.GetByID(ctx, id)
	}

	out := P(new(T))
	if err := t.db.QueryRowContext(ctx, query+" RETURNING "+t.columnList(), args...).Scan(out.ScanDest()...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			t.fail(ctx, "update_by_id", err)
		}
		return nil
	}
	return out
}

// DeleteByID removes the row with the given id and reports whether a row
// was deleted.
func (t *Table[T, P]) DeleteByID(ctx context.Context, id string) bool {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", t.name, t.dialect.Placeholder(1))

	res, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		t.fail(ctx, "delete_by_id", err)
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		t.fail(ctx, "delete_by_id", err)
		return false
	}
	return n > 0
}

func (t *Table[T, P]) query(ctx context.Context, op, query string, args ...any) []P {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		t.fail(ctx, op, err)
		return nil
	}
	defer rows.Close()

	out := []P{}
	for rows.Next() {
		rec := P(new(T))
		if err := rows.Scan(rec.ScanDest()...); err != nil {
			t.fail(ctx, op, err)
			return nil
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		t.fail(ctx, op, err)
		return nil
	}
	return out
}

func (t *Table[T, P]) writeOrder(b *strings.Builder, orderBy string, desc bool) error {
	if orderBy == "" {
		return nil
	}
	if !t.known[orderBy] {
		return fmt.Errorf("unknown order column %q", orderBy)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)
	if desc {
		b.WriteString(" DESC")
	}
	return nil
}

// returning reports whether the dialect hands back written rows in the same
// round trip. SQLite reports RETURNING columns without their declared
// types, so timestamps would come back as text.
func (t *Table[T, P]) returning() bool {
	return t.dialect == dbx.Postgres
}

func (t *Table[T, P]) columnList() string {
	return strings.Join(t.columns, ", ")
}

func (t *Table[T, P]) fail(ctx context.Context, op string, err error) {
	t.logger.Error(ctx, "record store call failed", "op", op, "error", err)
}
