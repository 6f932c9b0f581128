package consolidate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

// SourceSeed is a catalog entry before address resolution: the raw URL and
// the company it belongs to.
type SourceSeed struct {
	URL     string
	Company string
}

var freeTextURLPattern = regexp.MustCompile(`https?://\S+`)

// Catalog reads the master spreadsheet and produces the ordered list of
// sources to consolidate. Any failure (unreachable master, missing required
// column) yields an empty list and abandons the cycle; the scheduler retries
// later.
type Catalog struct {
	svc           sheets.Service
	spreadsheetID string
	tabName       string
	companyColumn string
	urlColumn     string
	log           zerolog.Logger
}

func NewCatalog(svc sheets.Service, spreadsheetID, tabName, companyColumn, urlColumn string, log zerolog.Logger) *Catalog {
	return &Catalog{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabName:       tabName,
		companyColumn: companyColumn,
		urlColumn:     urlColumn,
		log:           log,
	}
}

// Sources returns the de-duplicated source seeds in first-occurrence order.
func (c *Catalog) Sources(ctx context.Context) []SourceSeed {
	headers, err := c.svc.ReadRange(ctx, c.spreadsheetID, sheets.TabRange(c.tabName, "1:1"))
	if err != nil {
		c.log.Error().Err(err).Msg("failed to read master header row")
		return nil
	}
	var headerRow []string
	if len(headers) > 0 {
		headerRow = headers[0]
	}

	companyIdx, urlIdx, err := findColumns(headerRow, c.companyColumn, c.urlColumn)
	if err != nil {
		c.log.Error().Err(err).Str("tab", c.tabName).Msg("master catalog schema mismatch")
		return nil
	}
	c.log.Debug().
		Int("company_col", companyIdx).
		Int("url_col", urlIdx).
		Msg("resolved master catalog columns")

	rows, err := c.svc.ReadRange(ctx, c.spreadsheetID, sheets.TabRange(c.tabName, "A2:ZZ"))
	if err != nil {
		c.log.Error().Err(err).Msg("failed to read master data rows")
		return nil
	}

	seeds := extractSeeds(rows, companyIdx, urlIdx)
	c.log.Info().Int("sources", len(seeds)).Msg("loaded source list from master catalog")
	return seeds
}

// findColumns locates the company and URL columns by exact trimmed header
// text. Both must be present.
func findColumns(headers []string, companyName, urlName string) (companyIdx, urlIdx int, err error) {
	companyIdx, urlIdx = -1, -1
	for i, h := range headers {
		switch strings.TrimSpace(h) {
		case companyName:
			companyIdx = i
		case urlName:
			urlIdx = i
		}
	}
	if companyIdx == -1 {
		return 0, 0, fmt.Errorf("column '%s' not found in master header", companyName)
	}
	if urlIdx == -1 {
		return 0, 0, fmt.Errorf("column '%s' not found in master header", urlName)
	}
	return companyIdx, urlIdx, nil
}

// extractSeeds maps data rows to seeds: rows too short, or with an empty
// company or URL cell, are skipped. Duplicate URLs keep their first
// occurrence.
func extractSeeds(rows [][]string, companyIdx, urlIdx int) []SourceSeed {
	span := companyIdx
	if urlIdx > span {
		span = urlIdx
	}

	var seeds []SourceSeed
	seen := make(map[string]struct{})
	for _, row := range rows {
		if len(row) <= span {
			continue
		}
		company := strings.TrimSpace(row[companyIdx])
		cell := row[urlIdx]
		if company == "" || cell == "" {
			continue
		}

		url := extractURL(cell)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		seeds = append(seeds, SourceSeed{URL: url, Company: company})
	}
	return seeds
}

// extractURL pulls a spreadsheet URL out of a catalog cell. The cell is
// either the URL itself or free-form text containing one.
func extractURL(cell string) string {
	if strings.Contains(cell, "http") && strings.Contains(cell, "spreadsheets") {
		return strings.TrimSpace(cell)
	}
	return freeTextURLPattern.FindString(cell)
}
