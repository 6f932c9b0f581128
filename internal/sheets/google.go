package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleService implements Service against the Google Sheets v4 API using a
// service-account credentials file.
type GoogleService struct {
	svc *sheetsapi.Service
}

func NewGoogleService(ctx context.Context, credentialsFile string) (*GoogleService, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &GoogleService{svc: svc}, nil
}

func (g *GoogleService) Tabs(ctx context.Context, spreadsheetID string) ([]Tab, error) {
	meta, err := g.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", spreadsheetID, err)
	}
	tabs := make([]Tab, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties == nil {
			continue
		}
		tabs = append(tabs, Tab{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return tabs, nil
}

func (g *GoogleService) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	res, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", readRange, spreadsheetID, err)
	}
	rows := make([][]string, 0, len(res.Values))
	for _, raw := range res.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *GoogleService) WriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error {
	body := &sheetsapi.ValueRange{Values: toCellValues(values)}
	_, err := g.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", writeRange, spreadsheetID, err)
	}
	return nil
}

func (g *GoogleService) InsertRows(ctx context.Context, spreadsheetID string, tabID, start, end int64) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			InsertDimension: &sheetsapi.InsertDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    tabID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   end,
				},
				InheritFromBefore: false,
			},
		}},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to insert rows into %s: %w", spreadsheetID, err)
	}
	return nil
}

func (g *GoogleService) CreateTab(ctx context.Context, spreadsheetID, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: title,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    1000,
						ColumnCount: 26,
					},
				},
			},
		}},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create tab '%s' in %s: %w", title, spreadsheetID, err)
	}
	return nil
}

func toCellValues(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
