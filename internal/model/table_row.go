package model

import "time"

// TableRow is one spreadsheet row as persisted by the reference tabular
// backend. RowNumber 1 is the header; data rows start at 2 and are never
// deleted, so (TableName, RowNumber) is stable.
type TableRow struct {
	ID        int64  `gorm:"primaryKey"`
	TableName string `gorm:"size:64;not null;uniqueIndex:idx_table_row,priority:1"`
	RowNumber int    `gorm:"not null;uniqueIndex:idx_table_row,priority:2"`
	Cells     string `gorm:"not null"` // JSON-encoded []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
