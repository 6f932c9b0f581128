package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory Service used by tests. It models enough of the A1
// range grammar for the ranges the engine actually issues and mimics the
// Sheets API habit of omitting trailing empty rows and cells on reads.
type Fake struct {
	mu           sync.Mutex
	spreadsheets map[string]*fakeSpreadsheet

	// Error injection. When set, the corresponding call fails.
	TabsErr   map[string]error
	ReadErr   map[string]error
	WriteErr  error
	InsertErr error
	CreateErr error

	WriteCalls  int
	InsertCalls int

	nextTabID int64
}

type fakeSpreadsheet struct {
	tabs  []Tab
	grids map[int64][][]string
}

func NewFake() *Fake {
	return &Fake{
		spreadsheets: make(map[string]*fakeSpreadsheet),
		TabsErr:      make(map[string]error),
		ReadErr:      make(map[string]error),
		nextTabID:    100,
	}
}

// AddSpreadsheet registers an empty spreadsheet with no tabs.
func (f *Fake) AddSpreadsheet(spreadsheetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spreadsheets[spreadsheetID] == nil {
		f.spreadsheets[spreadsheetID] = &fakeSpreadsheet{grids: make(map[int64][][]string)}
	}
}

// AddTab registers a tab (creating the spreadsheet if needed) with the given
// grid contents and returns its id.
func (f *Fake) AddTab(spreadsheetID, title string, grid [][]string) int64 {
	f.mu.Lock()
	id := f.nextTabID
	f.nextTabID++
	f.mu.Unlock()
	f.AddTabID(spreadsheetID, title, id, grid)
	return id
}

// AddTabID is AddTab with a caller-chosen tab id, for tests that pin gids.
func (f *Fake) AddTabID(spreadsheetID, title string, id int64, grid [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		ss = &fakeSpreadsheet{grids: make(map[int64][][]string)}
		f.spreadsheets[spreadsheetID] = ss
	}
	ss.tabs = append(ss.tabs, Tab{ID: id, Title: title})
	ss.grids[id] = copyGrid(grid)
}

// Grid returns a copy of a tab's full contents.
func (f *Fake) Grid(spreadsheetID string, tabID int64) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		return nil
	}
	return copyGrid(ss.grids[tabID])
}

// SetGrid replaces a tab's contents.
func (f *Fake) SetGrid(spreadsheetID string, tabID int64, grid [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ss := f.spreadsheets[spreadsheetID]; ss != nil {
		ss.grids[tabID] = copyGrid(grid)
	}
}

func (f *Fake) Tabs(_ context.Context, spreadsheetID string) ([]Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.TabsErr[spreadsheetID]; err != nil {
		return nil, err
	}
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	return append([]Tab(nil), ss.tabs...), nil
}

func (f *Fake) ReadRange(_ context.Context, spreadsheetID, readRange string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ReadErr[spreadsheetID]; err != nil {
		return nil, err
	}
	grid, rect, err := f.locate(spreadsheetID, readRange)
	if err != nil {
		return nil, err
	}

	var out [][]string
	endRow := rect.endRow
	if endRow < 0 || endRow >= len(grid) {
		endRow = len(grid) - 1
	}
	for r := rect.startRow; r <= endRow; r++ {
		if r < 0 || r >= len(grid) {
			continue
		}
		src := grid[r]
		endCol := rect.endCol
		if endCol < 0 || endCol >= len(src) {
			endCol = len(src) - 1
		}
		var row []string
		for c := rect.startCol; c <= endCol; c++ {
			if c < len(src) {
				row = append(row, src[c])
			}
		}
		// trim trailing empty cells, as the real API does
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		out = append(out, row)
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *Fake) WriteRange(_ context.Context, spreadsheetID, writeRange string, values [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.WriteErr = nil
		return err
	}
	grid, rect, err := f.locate(spreadsheetID, writeRange)
	if err != nil {
		return err
	}
	ss := f.spreadsheets[spreadsheetID]
	tabID := f.tabIDForRange(ss, writeRange)

	for i, row := range values {
		r := rect.startRow + i
		for len(grid) <= r {
			grid = append(grid, nil)
		}
		for j, cell := range row {
			c := rect.startCol + j
			for len(grid[r]) <= c {
				grid[r] = append(grid[r], "")
			}
			grid[r][c] = cell
		}
	}
	ss.grids[tabID] = grid
	f.WriteCalls++
	return nil
}

func (f *Fake) InsertRows(_ context.Context, spreadsheetID string, tabID, start, end int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		err := f.InsertErr
		f.InsertErr = nil
		return err
	}
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		return fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	grid, ok := ss.grids[tabID]
	if !ok {
		return fmt.Errorf("tab %d not found in %s", tabID, spreadsheetID)
	}
	n := int(end - start)
	at := int(start)
	if at > len(grid) {
		at = len(grid)
	}
	blanks := make([][]string, n)
	grid = append(grid[:at], append(blanks, grid[at:]...)...)
	ss.grids[tabID] = grid
	f.InsertCalls++
	return nil
}

func (f *Fake) CreateTab(_ context.Context, spreadsheetID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		err := f.CreateErr
		f.CreateErr = nil
		return err
	}
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		ss = &fakeSpreadsheet{grids: make(map[int64][][]string)}
		f.spreadsheets[spreadsheetID] = ss
	}
	id := f.nextTabID
	f.nextTabID++
	ss.tabs = append(ss.tabs, Tab{ID: id, Title: title})
	ss.grids[id] = nil
	return nil
}

// locate resolves an A1 range to the backing grid and a rectangle.
// Callers hold f.mu.
func (f *Fake) locate(spreadsheetID, a1 string) ([][]string, rect, error) {
	ss := f.spreadsheets[spreadsheetID]
	if ss == nil {
		return nil, rect{}, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	tabID := f.tabIDForRange(ss, a1)
	if tabID < 0 {
		return nil, rect{}, fmt.Errorf("tab in range %q not found", a1)
	}
	r, err := parseRect(refPart(a1))
	if err != nil {
		return nil, rect{}, err
	}
	return ss.grids[tabID], r, nil
}

func (f *Fake) tabIDForRange(ss *fakeSpreadsheet, a1 string) int64 {
	title := tabPart(a1)
	for _, t := range ss.tabs {
		if t.Title == title {
			return t.ID
		}
	}
	return -1
}

type rect struct {
	startRow, endRow int // endRow -1 means open
	startCol, endCol int // endCol -1 means open
}

func tabPart(a1 string) string {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return ""
	}
	title := a1[:i]
	if strings.HasPrefix(title, "'") && strings.HasSuffix(title, "'") {
		title = strings.ReplaceAll(title[1:len(title)-1], "''", "'")
	}
	return title
}

func refPart(a1 string) string {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return a1
	}
	return a1[i+1:]
}

// parseRect understands the subset of A1 references the engine issues:
// "A1", "A2", "1:1", "A:A", "A:Q", "A2:ZZ", "A1:A1".
func parseRect(ref string) (rect, error) {
	parts := strings.SplitN(ref, ":", 2)
	sc, sr, err := parseCell(parts[0])
	if err != nil {
		return rect{}, err
	}
	out := rect{startRow: orZero(sr), startCol: orZero(sc), endRow: sr, endCol: sc}
	if len(parts) == 2 {
		ec, er, err := parseCell(parts[1])
		if err != nil {
			return rect{}, err
		}
		out.endRow = er
		out.endCol = ec
	}
	return out, nil
}

func orZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// parseCell splits a reference like "B3" into zero-based column and row.
// Either part may be absent ("B", "3"); absent parts return -1.
func parseCell(s string) (col, row int, err error) {
	col, row = -1, -1
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		if col < 0 {
			col = 0
		}
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if col >= 0 {
		col--
	}
	if i < len(s) {
		n := 0
		for ; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return 0, 0, fmt.Errorf("bad A1 reference %q", s)
			}
			n = n*10 + int(s[i]-'0')
		}
		row = n - 1
	}
	return col, row, nil
}

func copyGrid(grid [][]string) [][]string {
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = append([]string(nil), row...)
	}
	return out
}
