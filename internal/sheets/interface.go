// Package sheets wraps the remote spreadsheet service behind a narrow
// capability interface so the consolidation engine can run against the real
// Google Sheets API or an in-memory fake.
package sheets

import (
	"context"
	"strings"
)

// Tab identifies a single sheet (tab) within a spreadsheet.
type Tab struct {
	ID    int64
	Title string
}

// Service is the set of spreadsheet operations the consolidator consumes.
// Every call is fallible; callers treat failures as retryable at the next
// cycle rather than fatal.
type Service interface {
	// Tabs returns the tab metadata (id, title) of a spreadsheet.
	Tabs(ctx context.Context, spreadsheetID string) ([]Tab, error)
	// ReadRange returns the cell values of an A1-notation range. Trailing
	// empty rows and cells are omitted, matching Sheets API semantics.
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	// WriteRange writes values starting at the top-left of an A1 range.
	WriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error
	// InsertRows inserts blank rows [start, end) into a tab, shifting
	// existing rows down. Indices are zero-based.
	InsertRows(ctx context.Context, spreadsheetID string, tabID, start, end int64) error
	// CreateTab adds a new empty tab with the given title.
	CreateTab(ctx context.Context, spreadsheetID, title string) error
}

// TabRange builds an A1 range reference scoped to a tab. Titles are quoted so
// tab names containing spaces survive.
func TabRange(tab, ref string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + ref
}
