// Package tabled is the reference implementation of the tabular store that
// techtrackd persists to. It keeps every table as numbered rows in a single
// relation and serves the same wire protocol a hosted spreadsheet backend
// would, so deployments can start self-contained and move later.
package tabled

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/tabular"
)

// headerRow is the row number reserved for the column header.
const headerRow = 1

// Store errors, mapped onto HTTP statuses by the handlers.
var (
	ErrNoHeader       = errors.New("table has no header")
	ErrHeaderMismatch = errors.New("header does not match existing header")
	ErrRowNotFound    = errors.New("row not found")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrRowTooWide     = errors.New("row wider than header")
)

// Store persists tables as (table_name, row_number, cells) triples. Row
// numbers are append-ordered and never reused: the header is row 1, data rows
// start at 2, and rows are never deleted.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListRows returns a table's header and data rows in row-number order. An
// unknown table is indistinguishable from an empty one: both return an empty
// header and no rows.
func (s *Store) ListRows(ctx context.Context, table string) ([]string, []tabular.RowData, error) {
	var rows []model.TableRow
	err := s.db.WithContext(ctx).
		Where("table_name = ?", table).
		Order("row_number").
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list rows of %s: %w", table, err)
	}

	header := []string{}
	data := make([]tabular.RowData, 0, len(rows))
	for _, row := range rows {
		cells, err := decodeCells(row.Cells)
		if err != nil {
			return nil, nil, fmt.Errorf("corrupt row %d of %s: %w", row.RowNumber, table, err)
		}
		if row.RowNumber == headerRow {
			header = cells
			continue
		}
		data = append(data, tabular.RowData{Number: row.RowNumber, Cells: cells})
	}
	return header, data, nil
}

// PutHeader writes the column header of an empty table. Re-putting an
// identical header is a no-op; a different one is refused, because changing
// the schema under live rows would silently re-key every cell.
func (s *Store) PutHeader(ctx context.Context, table string, header []string) (created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TableRow
		findErr := tx.Where("table_name = ? AND row_number = ?", table, headerRow).First(&existing).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			encoded, encErr := encodeCells(header)
			if encErr != nil {
				return encErr
			}
			created = true
			return tx.Create(&model.TableRow{TableName: table, RowNumber: headerRow, Cells: encoded}).Error
		}
		if findErr != nil {
			return findErr
		}

		current, decErr := decodeCells(existing.Cells)
		if decErr != nil {
			return fmt.Errorf("corrupt header of %s: %w", table, decErr)
		}
		if !equalCells(current, header) {
			return fmt.Errorf("table %s: %w", table, ErrHeaderMismatch)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Append inserts one data row and returns its assigned row number. The next
// number is taken under the insert's transaction, so concurrent appends get
// distinct rows.
func (s *Store) Append(ctx context.Context, table string, cells []string) (int, error) {
	number := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header, err := s.header(tx, table)
		if err != nil {
			return err
		}
		if len(cells) > len(header) {
			return fmt.Errorf("table %s: %d cells for %d columns: %w", table, len(cells), len(header), ErrRowTooWide)
		}

		var max sql.NullInt64
		if err := tx.Model(&model.TableRow{}).
			Where("table_name = ?", table).
			Select("MAX(row_number)").
			Scan(&max).Error; err != nil {
			return fmt.Errorf("failed to allocate row number: %w", err)
		}
		number = int(max.Int64) + 1

		encoded, err := encodeCells(cells)
		if err != nil {
			return err
		}
		return tx.Create(&model.TableRow{TableName: table, RowNumber: number, Cells: encoded}).Error
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// Patch updates the named columns of one row in place. Updates are keyed by
// column name and resolved against the header inside the same transaction.
func (s *Store) Patch(ctx context.Context, table string, number int, updates map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header, err := s.header(tx, table)
		if err != nil {
			return err
		}

		index := make(map[string]int, len(header))
		for i, col := range header {
			index[col] = i
		}
		for col := range updates {
			if _, ok := index[col]; !ok {
				return fmt.Errorf("table %s: column %q: %w", table, col, ErrUnknownColumn)
			}
		}

		var row model.TableRow
		findErr := tx.Where("table_name = ? AND row_number = ?", table, number).First(&row).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("table %s row %d: %w", table, number, ErrRowNotFound)
		}
		if findErr != nil {
			return findErr
		}

		cells, err := decodeCells(row.Cells)
		if err != nil {
			return fmt.Errorf("corrupt row %d of %s: %w", number, table, err)
		}
		// Short rows grow to header width so any column is addressable.
		for len(cells) < len(header) {
			cells = append(cells, "")
		}
		for col, v := range updates {
			cells[index[col]] = v
		}

		encoded, err := encodeCells(cells)
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("cells", encoded).Error
	})
}

func (s *Store) header(tx *gorm.DB, table string) ([]string, error) {
	var row model.TableRow
	err := tx.Where("table_name = ? AND row_number = ?", table, headerRow).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("table %s: %w", table, ErrNoHeader)
	}
	if err != nil {
		return nil, err
	}
	return decodeCells(row.Cells)
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("failed to encode cells: %w", err)
	}
	return string(data), nil
}

func decodeCells(encoded string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(encoded), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return cells, nil
}

func equalCells(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
