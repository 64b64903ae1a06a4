package record

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"techtrack-backend/internal/metrics"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/tabular"
)

// ErrNotFound reports that no row matched the requested key.
var ErrNotFound = errors.New("record not found")

// Result is the outcome of a conditional update.
type Result int

const (
	Updated Result = iota + 1
	Conflict
	NotFound
)

func (r Result) String() string {
	switch r {
	case Updated:
		return "updated"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// TableAPI is the slice of the table client the record store depends on.
type TableAPI interface {
	ListRows(ctx context.Context, table string) ([]tabular.Row, error)
	AppendRow(ctx context.Context, table string, cells []string) error
	PatchRow(ctx context.Context, table string, number int, updates map[string]string) error
	EnsureHeader(ctx context.Context, table string, header []string) error
}

// Store provides record operations over the remote tables. Find scans, Append
// inserts, and CompareAndUpdate is the sole concurrency primitive: every
// state-changing caller states its precondition explicitly because the
// remote store has no row locks or transactions.
type Store interface {
	Find(ctx context.Context, table, keyCol, key string) (tabular.Row, error)
	List(ctx context.Context, table string) ([]tabular.Row, error)
	Append(ctx context.Context, table string, fields map[string]string) error
	CompareAndUpdate(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (Result, error)
	EnsureTables(ctx context.Context) error
}

// tableStore implements Store over a TableAPI.
type tableStore struct {
	api TableAPI

	// ensured remembers tables whose header this process has written or
	// verified, so appends pay the extra round trip at most once per table.
	ensured sync.Map
}

// NewStore creates a record store backed by the given table client.
func NewStore(api TableAPI) Store {
	return &tableStore{api: api}
}

// Find scans the table for the first row whose keyCol equals key. A full
// scan is the only query mechanism the backend offers; at hundreds to low
// thousands of rows this stays well inside one page fetch.
func (s *tableStore) Find(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
	if err := checkColumns(table, keyCol); err != nil {
		return tabular.Row{}, err
	}

	rows, err := s.api.ListRows(ctx, table)
	if err != nil {
		return tabular.Row{}, err
	}
	for _, row := range rows {
		if row.Fields[keyCol] == key {
			return row, nil
		}
	}
	return tabular.Row{}, fmt.Errorf("%s %s=%q: %w", table, keyCol, key, ErrNotFound)
}

// List returns all data rows of a table in storage order.
func (s *tableStore) List(ctx context.Context, table string) ([]tabular.Row, error) {
	if _, ok := model.Columns(table); !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return s.api.ListRows(ctx, table)
}

// Append inserts one row, ordering the fields by the table's column order.
// The table header is ensured before the first append of the process.
func (s *tableStore) Append(ctx context.Context, table string, fields map[string]string) error {
	cols, ok := model.Columns(table)
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	for name := range fields {
		if !hasColumn(cols, name) {
			return fmt.Errorf("table %s has no column %q", table, name)
		}
	}

	if err := s.ensure(ctx, table, cols); err != nil {
		return err
	}

	cells := make([]string, len(cols))
	for i, col := range cols {
		cells[i] = fields[col]
	}
	return s.api.AppendRow(ctx, table, cells)
}

// CompareAndUpdate re-reads the row by key, verifies every expected field
// still holds its last-read value, and patches the updates onto that row.
// An empty expected set makes the update unconditional. The read-verify-write
// is not atomic against the remote store; a competing writer interleaving
// between read and patch is the accepted, bounded race this detects on the
// next caller's read rather than prevents.
func (s *tableStore) CompareAndUpdate(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (Result, error) {
	cols, ok := model.Columns(table)
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	for _, m := range []map[string]string{expected, updates} {
		for name := range m {
			if !hasColumn(cols, name) {
				return 0, fmt.Errorf("table %s has no column %q", table, name)
			}
		}
	}
	if len(updates) == 0 {
		return 0, fmt.Errorf("no updates given for %s %s=%q", table, keyCol, key)
	}

	row, err := s.Find(ctx, table, keyCol, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFound, nil
		}
		return 0, err
	}

	for col, want := range expected {
		if row.Fields[col] != want {
			metrics.Conflict(table)
			return Conflict, nil
		}
	}

	if err := s.api.PatchRow(ctx, table, row.Number, updates); err != nil {
		return 0, err
	}
	return Updated, nil
}

// EnsureTables writes or verifies the header of every known table. Called at
// startup so later appends hit warm tables.
func (s *tableStore) EnsureTables(ctx context.Context) error {
	for _, table := range model.Tables() {
		cols, _ := model.Columns(table)
		if err := s.ensure(ctx, table, cols); err != nil {
			return fmt.Errorf("failed to ensure header of %s: %w", table, err)
		}
	}
	return nil
}

func (s *tableStore) ensure(ctx context.Context, table string, cols []string) error {
	if _, ok := s.ensured.Load(table); ok {
		return nil
	}
	if err := s.api.EnsureHeader(ctx, table, cols); err != nil {
		return err
	}
	s.ensured.Store(table, true)
	return nil
}

func checkColumns(table string, names ...string) error {
	cols, ok := model.Columns(table)
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	for _, name := range names {
		if !hasColumn(cols, name) {
			return fmt.Errorf("table %s has no column %q", table, name)
		}
	}
	return nil
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
