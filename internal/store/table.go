package store

// Table is an ordered set of rows, unique on MovieID. A Table handed out by
// the Store is a private copy; changing it never affects the cache.
type Table struct {
	rows  []Row
	index map[string]int
}

// NewTable builds a table from rows, keeping the first row of each movie id.
func NewTable(rows []Row) Table {
	t := Table{
		rows:  make([]Row, 0, len(rows)),
		index: make(map[string]int, len(rows)),
	}
	for _, row := range rows {
		if _, dup := t.index[row.MovieID]; dup {
			continue
		}
		t.index[row.MovieID] = len(t.rows)
		t.rows = append(t.rows, row.clone())
	}
	return t
}

func (t Table) Len() int {
	return len(t.rows)
}

func (t Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a copy of the rows in table order.
func (t Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.clone()
	}
	return out
}

// MovieIDs returns the movie ids in table order.
func (t Table) MovieIDs() []string {
	ids := make([]string, len(t.rows))
	for i, row := range t.rows {
		ids[i] = row.MovieID
	}
	return ids
}

// Lookup finds the row with movieID.
func (t Table) Lookup(movieID string) (Row, bool) {
	i, ok := t.index[movieID]
	if !ok {
		return Row{}, false
	}
	return t.rows[i].clone(), true
}

// Clone returns a deep copy. The id index is shared since it is never
// written after construction.
func (t Table) Clone() Table {
	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		rows[i] = row.clone()
	}
	return Table{rows: rows, index: t.index}
}

// filter returns the rows meeting minVotes, keeping order.
func (t Table) filter(minVotes int64) Table {
	if minVotes <= 0 {
		return t
	}
	out := Table{
		rows:  make([]Row, 0, len(t.rows)),
		index: make(map[string]int),
	}
	for _, row := range t.rows {
		if !row.meetsThreshold(minVotes) {
			continue
		}
		out.index[row.MovieID] = len(out.rows)
		out.rows = append(out.rows, row)
	}
	return out
}
