// Package snapshot defines the rectangular tables materialized from
// fetch output and processed data, plus the CSV codec they persist
// through. Cells are strings; builders are responsible for canonical
// value formatting so that snapshot comparison is plain equality.
package snapshot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// keySep joins identity column values into a composite key. The unit
// separator cannot appear in CSV cell values produced by this system.
const keySep = "\x1f"

// Snapshot is a rectangular table with named columns.
type Snapshot struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty snapshot with the given column order.
func New(columns ...string) *Snapshot {
	return &Snapshot{Columns: columns}
}

// Len returns the row count.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// Empty reports whether the snapshot has no rows.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Snapshot) ColumnIndex(name string) int {
	for i, col := range s.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// IdentityIndices resolves identity column names to positions.
func (s *Snapshot) IdentityIndices(identity []string) ([]int, error) {
	idx := make([]int, len(identity))
	for i, col := range identity {
		pos := s.ColumnIndex(col)
		if pos < 0 {
			return nil, fmt.Errorf("identity column %q not in snapshot", col)
		}
		idx[i] = pos
	}
	return idx, nil
}

// Append adds a row, which must match the column count.
func (s *Snapshot) Append(row []string) error {
	if len(row) != len(s.Columns) {
		return fmt.Errorf("row has %d cells, snapshot has %d columns", len(row), len(s.Columns))
	}
	s.Rows = append(s.Rows, row)
	return nil
}

// AppendRecord adds a row from a column-name map. Missing columns become
// empty cells; unknown keys are ignored.
func (s *Snapshot) AppendRecord(rec map[string]string) {
	row := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		row[i] = rec[col]
	}
	s.Rows = append(s.Rows, row)
}

// AppendAll merges other's rows into s, mapping cells by column name so
// the two snapshots may disagree on column order or drift in schema.
// Columns absent from other become empty cells.
func (s *Snapshot) AppendAll(other *Snapshot) {
	if other.Empty() {
		return
	}

	same := len(s.Columns) == len(other.Columns)
	if same {
		for i := range s.Columns {
			if s.Columns[i] != other.Columns[i] {
				same = false
				break
			}
		}
	}
	if same {
		s.Rows = append(s.Rows, other.Rows...)
		return
	}

	mapping := make([]int, len(s.Columns))
	for i, col := range s.Columns {
		mapping[i] = other.ColumnIndex(col)
	}
	for _, src := range other.Rows {
		row := make([]string, len(s.Columns))
		for i, j := range mapping {
			if j >= 0 && j < len(src) {
				row[i] = src[j]
			}
		}
		s.Rows = append(s.Rows, row)
	}
}

// Record returns row i as a column-name map.
func (s *Snapshot) Record(i int) map[string]string {
	rec := make(map[string]string, len(s.Columns))
	for j, col := range s.Columns {
		rec[col] = s.Rows[i][j]
	}
	return rec
}

// Key builds the composite identity key for a row.
func Key(row []string, idx []int) string {
	if len(idx) == 1 {
		return row[idx[0]]
	}
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = row[j]
	}
	return strings.Join(parts, keySep)
}

// DedupeLast drops rows whose identity key reappears later, keeping the
// last occurrence in its original position. Checkpoint merges rely on
// this so re-fetched entities overwrite rows from earlier batches.
func (s *Snapshot) DedupeLast(identity []string) error {
	idx, err := s.IdentityIndices(identity)
	if err != nil {
		return err
	}

	last := make(map[string]int, len(s.Rows))
	for i, row := range s.Rows {
		last[Key(row, idx)] = i
	}
	if len(last) == len(s.Rows) {
		return nil
	}

	kept := make([][]string, 0, len(last))
	for i, row := range s.Rows {
		if last[Key(row, idx)] == i {
			kept = append(kept, row)
		}
	}
	s.Rows = kept
	return nil
}

// SortBy orders rows by the given columns, comparing numerically when
// both cells parse as numbers so ID columns sort as 2 < 10.
func (s *Snapshot) SortBy(cols ...string) error {
	idx, err := s.IdentityIndices(cols)
	if err != nil {
		return err
	}

	sort.SliceStable(s.Rows, func(a, b int) bool {
		for _, j := range idx {
			if c := compareCells(s.Rows[a][j], s.Rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return nil
}

// Filter returns a new snapshot holding the rows keep accepts.
func (s *Snapshot) Filter(keep func(row []string) bool) *Snapshot {
	out := New(s.Columns...)
	for _, row := range s.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Column returns every cell of the named column in row order.
func (s *Snapshot) Column(name string) ([]string, error) {
	j := s.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("column %q not in snapshot", name)
	}
	vals := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		vals[i] = row[j]
	}
	return vals, nil
}

func compareCells(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
