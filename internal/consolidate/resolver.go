package consolidate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

// Source is a fully resolved consolidation source: one tab of one remote
// spreadsheet. It is rebuilt from the catalog every cycle and never persisted;
// only its Key appears in the ledger.
type Source struct {
	URL           string
	Company       string
	SpreadsheetID string
	TabID         int64
	TabName       string
}

// Key is the source's ledger identity.
func (s Source) Key() string {
	return fmt.Sprintf("%s_%d", s.SpreadsheetID, s.TabID)
}

// Ordered: the canonical /spreadsheets/d/<id> form wins over the legacy
// id=<id> query form.
var spreadsheetIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9-_]+)`),
}

var gidPattern = regexp.MustCompile(`gid=(\d+)`)

// ParseSpreadsheetURL extracts the spreadsheet id and tab id (gid) from a
// Sheets URL. A missing gid defaults to 0. ok is false when no spreadsheet id
// can be found.
func ParseSpreadsheetURL(url string) (spreadsheetID string, tabID int64, ok bool) {
	for _, p := range spreadsheetIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			spreadsheetID = m[1]
			break
		}
	}
	if spreadsheetID == "" {
		return "", 0, false
	}
	if m := gidPattern.FindStringSubmatch(url); m != nil {
		tabID, _ = strconv.ParseInt(m[1], 10, 64)
	}
	return spreadsheetID, tabID, true
}

// Resolver turns source seeds into resolved sources using remote metadata.
type Resolver struct {
	svc sheets.Service
}

func NewResolver(svc sheets.Service) *Resolver {
	return &Resolver{svc: svc}
}

// Resolve parses the seed URL and looks up the tab title for its gid. When no
// tab matches the gid, the first tab in metadata order is used. Errors mean
// the source should be skipped for this cycle, not that the cycle should stop.
func (r *Resolver) Resolve(ctx context.Context, seed SourceSeed) (Source, error) {
	id, gid, ok := ParseSpreadsheetURL(seed.URL)
	if !ok {
		return Source{}, fmt.Errorf("no spreadsheet id in url %q", seed.URL)
	}

	tabs, err := r.svc.Tabs(ctx, id)
	if err != nil {
		return Source{}, fmt.Errorf("failed to resolve tab for %s: %w", id, err)
	}
	if len(tabs) == 0 {
		return Source{}, fmt.Errorf("spreadsheet %s has no tabs", id)
	}

	tabName := tabs[0].Title
	for _, t := range tabs {
		if t.ID == gid {
			tabName = t.Title
			break
		}
	}

	return Source{
		URL:           seed.URL,
		Company:       seed.Company,
		SpreadsheetID: id,
		TabID:         gid,
		TabName:       tabName,
	}, nil
}
