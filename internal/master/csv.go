package master

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Load reads a master table from its CSV file. A missing file yields an
// empty table. An unparseable file also yields an empty table, with a
// warning that prior data may be overwritten on the next Save — the fetch
// must not be blocked by a corrupt local cache.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("master: open %s: %w", path, err)
	}
	defer f.Close()

	t, err := read(f)
	if err != nil {
		slog.Warn("master table unparseable, starting fresh; prior data may be overwritten",
			"path", path, "error", err)
		return NewTable(), nil
	}
	return t, nil
}

func read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("master: read header: %w", err)
	}
	if len(header) == 0 || header[0] != "timestamp" {
		return nil, fmt.Errorf("master: first column is %q, want \"timestamp\"", firstOrEmpty(header))
	}

	t := NewTable()
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("master: read row: %w", err)
		}
		if len(record) == 0 || record[0] == "" {
			continue
		}
		fields := make(map[string]any)
		for i := 1; i < len(record) && i < len(header); i++ {
			if record[i] != "" {
				fields[header[i]] = record[i]
			}
		}
		for name := range fields {
			t.columns[name] = struct{}{}
		}
		row := Row{Timestamp: record[0], Fields: fields}
		if pos, ok := t.index[row.Timestamp]; ok {
			t.rows[pos] = row
			continue
		}
		t.index[row.Timestamp] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	// Columns present in the header survive even when no row carries them.
	for _, name := range header[1:] {
		if name != "" {
			t.columns[name] = struct{}{}
		}
	}
	return t, nil
}

// Save writes the table as a full rewrite through a temp file and rename.
// Header: timestamp first, then all columns lexicographically sorted.
// Mutation of the on-disk table is a critical section; callers coordinate
// via single-writer discipline.
func (t *Table) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("master: mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("master: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("master: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("master: rename: %w", err)
	}
	return nil
}

func (t *Table) write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()

	header := append([]string{"timestamp"}, cols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("master: write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range t.rows {
		record[0] = row.Timestamp
		for i, col := range cols {
			if v, ok := row.Fields[col]; ok {
				record[i+1] = formatValue(v)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("master: write row %s: %w", row.Timestamp, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
