package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile loads a CSV file as a snapshot. The first record is the
// header. An empty file yields an empty zero-column snapshot.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	s := New(records[0]...)
	for _, rec := range records[1:] {
		// Tolerate ragged rows from interrupted writes.
		row := make([]string, len(s.Columns))
		copy(row, rec)
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// WriteFile persists the snapshot as CSV via a temp-file rename, so a
// crash mid-checkpoint leaves the previous file intact.
func (s *Snapshot) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}

	w := csv.NewWriter(tmp)
	writeErr := w.Write(s.Columns)
	if writeErr == nil {
		writeErr = w.WriteAll(s.Rows)
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot file %s: %w", path, writeErr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot file %s: %w", path, err)
	}
	return nil
}
