package loader

import "github.com/rohmanhakim/movie-sampler/internal/dataset"

// Table is the decoded content of one dataset file. Rows keep file order.
// A Table is not mutated after Load returns it.
type Table[T any] struct {
	dataset  dataset.Name
	columns  []string
	index    map[string]int
	rows     []T
	raw      [][]string
	rawCells bool
	skipped  int
}

func (t *Table[T]) Dataset() dataset.Name {
	return t.dataset
}

// Columns returns the selected column names in header order.
func (t *Table[T]) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table[T]) Len() int {
	return len(t.rows)
}

func (t *Table[T]) Row(i int) T {
	return t.rows[i]
}

// Rows returns a copy of the decoded rows.
func (t *Table[T]) Rows() []T {
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out
}

// Value returns the raw cell of row i in column. It reports false for null
// cells, unselected columns and out of range rows, and always when the
// table was loaded without WithRawCells.
func (t *Table[T]) Value(i int, column string) (string, bool) {
	if i < 0 || i >= len(t.raw) {
		return "", false
	}
	idx, ok := t.index[column]
	if !ok {
		return "", false
	}
	cell := t.raw[i][idx]
	if cell == NullToken {
		return "", false
	}
	return cell, true
}

// HasRawCells reports whether Value can return cells.
func (t *Table[T]) HasRawCells() bool {
	return t.rawCells
}

// Skipped is the number of malformed rows dropped while loading.
func (t *Table[T]) Skipped() int {
	return t.skipped
}
