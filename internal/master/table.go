// Package master maintains the wide, timestamp-keyed table that accumulates
// every classified property across events, and its CSV persistence.
package master

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bimotal/motordata/internal/model"
)

// Row is one logical row of the master table: the union of every category's
// fields for a single event timestamp.
type Row struct {
	Timestamp string
	Fields    map[string]any
}

// Table is the master table. Exactly one row exists per distinct timestamp;
// re-inserting a timestamp replaces the whole row. The column set is the
// union of every property name ever inserted and only grows — replacing or
// shrinking a row never removes columns.
//
// Table is not safe for concurrent mutation; callers serialize writes
// (single-writer discipline, see Save).
type Table struct {
	rows    []Row
	index   map[string]int // timestamp -> position in rows
	columns map[string]struct{}
}

// NewTable returns an empty master table.
func NewTable() *Table {
	return &Table{
		index:   make(map[string]int),
		columns: make(map[string]struct{}),
	}
}

// Upsert merges one classified event into the table. All categories' fields
// for the event's timestamp become a single row. An existing row with the
// same timestamp is replaced entirely: replacement is whole-row, never a
// field-level merge.
func (t *Table) Upsert(ev model.ClassifiedEvent) {
	fields := ev.AllFields()
	if len(fields) == 0 {
		return
	}
	for name := range fields {
		t.columns[name] = struct{}{}
	}
	row := Row{Timestamp: ev.Timestamp, Fields: fields}
	if pos, ok := t.index[ev.Timestamp]; ok {
		t.rows[pos] = row
		return
	}
	t.index[ev.Timestamp] = len(t.rows)
	t.rows = append(t.rows, row)
}

// UpsertAll applies Upsert over a batch. Final rows follow first-seen
// timestamp order with last-write values.
func (t *Table) UpsertAll(events []model.ClassifiedEvent) {
	for _, ev := range events {
		t.Upsert(ev)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows in first-seen timestamp order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Latest returns the most recently inserted row.
func (t *Table) Latest() (Row, bool) {
	if len(t.rows) == 0 {
		return Row{}, false
	}
	return t.rows[len(t.rows)-1], true
}

// Columns returns all property columns sorted lexicographically. The
// timestamp key column is not included.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.columns))
	for name := range t.columns {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// Value returns a row's value for a column; ok is false when the row lacks
// the column (missing, not zero).
func (r Row) Value(column string) (any, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Numeric returns a row's value for a column coerced to float64. Missing
// columns and non-numeric values report false.
func (r Row) Numeric(column string) (float64, bool) {
	v, ok := r.Fields[column]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// toFloat coerces the scalar types a JSON property bag can carry.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// formatValue renders a scalar for the CSV file.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
