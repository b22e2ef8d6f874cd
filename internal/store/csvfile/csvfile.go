// Package csvfile implements the expense store as a single CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Store is a store.Store backed by a CSV file with a header line.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Ensure creates the parent directory and a header-only file when the store
// does not exist yet. An existing file is never touched.
func (s *Store) Ensure(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	if err := writeRecords(f, [][]string{core.Header()}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Append writes one row at the end of the file, adding the header first if
// the file did not exist. Only the header line is read: the row is laid out
// to match it so the new record has the same arity as the rest of the file.
func (s *Store) Append(_ context.Context, e core.Expense) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	header, err := s.readHeader()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	var recs [][]string
	if header == nil {
		header = core.Header()
		recs = append(recs, header)
	}
	recs = append(recs, store.Layout(header, e))
	if err := writeRecords(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readHeader returns the first record of the file, or nil when the file is
// missing or empty.
func (s *Store) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store header: %w", err)
	}
	return header, nil
}

// Load reads the whole file. Records whose field count differs from the
// header, or that the CSV reader rejects, are skipped.
func (s *Store) Load(_ context.Context) (*store.Table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return store.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable parses CSV content with the skipping rules of Load.
func ReadTable(r io.Reader) (*store.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &store.Table{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read store: %w", err)
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		if len(rec) != len(t.Header) {
			continue
		}
		t.Rows = append(t.Rows, store.Row(rec))
	}
	if t.Header == nil {
		t.Header = core.Header()
	}
	return t, nil
}

// Rewrite replaces the file atomically: the table is written to a temporary
// file in the same directory, synced, then renamed over the store.
func (s *Store) Rewrite(_ context.Context, t *store.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(s.fileMode()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	recs := make([][]string, 0, t.Len()+1)
	recs = append(recs, t.Header)
	for _, r := range t.Rows {
		recs = append(recs, r)
	}
	if err := writeRecords(tmp, recs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// fileMode is the permission of the current store file, or 0644 when there
// is none yet. CreateTemp would otherwise leave the store at 0600.
func (s *Store) fileMode() os.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

func writeRecords(w io.Writer, recs [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(recs); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
