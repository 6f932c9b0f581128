package consolidate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/config"
	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

// CycleSummary captures the outcome of one consolidation cycle for logging
// and the status endpoint.
type CycleSummary struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	SourcesFound   int           `json:"sources_found"`
	SourcesSkipped int           `json:"sources_skipped"`
	NewRows        int           `json:"new_rows"`
	RowsWritten    int           `json:"rows_written"`
	Flushes        int           `json:"flushes"`
	FlushErrors    int           `json:"flush_errors"`
}

// Consolidator runs consolidation cycles: for every source in the master
// catalog it fetches rows, filters out the ones already delivered, and hands
// the rest to the batch writer. Sources are processed strictly one at a time;
// the rate limiter spaces requests against the remote service.
type Consolidator struct {
	svc     sheets.Service
	cfg     *config.Config
	log     zerolog.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	last *CycleSummary
}

func New(svc sheets.Service, cfg *config.Config, log zerolog.Logger) *Consolidator {
	return &Consolidator{
		svc:     svc,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(cfg.SourcePause()), 1),
	}
}

// LastSummary returns the most recent cycle's summary, or nil before the
// first cycle completes.
func (c *Consolidator) LastSummary() *CycleSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	cp := *c.last
	return &cp
}

// RunCycle performs one full pass over the source catalog. The ledger is
// loaded fresh from disk at the start so a cycle always works from the last
// durably committed state.
func (c *Consolidator) RunCycle(ctx context.Context) CycleSummary {
	summary := CycleSummary{
		RunID:     uuid.New().String()[:8],
		StartedAt: time.Now().UTC(),
	}
	log := c.log.With().Str("run", summary.RunID).Logger()
	log.Info().Msg("starting consolidation cycle")

	ledger := LoadLedger(c.cfg.Engine.LedgerPath, log)

	catalog := NewCatalog(c.svc,
		c.cfg.Master.SpreadsheetID, c.cfg.Master.TabName,
		c.cfg.Master.CompanyColumn, c.cfg.Master.URLColumn, log)
	seeds := catalog.Sources(ctx)
	summary.SourcesFound = len(seeds)

	if len(seeds) == 0 {
		log.Warn().Msg("no sources to process this cycle")
		c.finish(&summary, log)
		return summary
	}

	resolver := NewResolver(c.svc)
	writer := NewBatchWriter(c.svc,
		c.cfg.Destination.SpreadsheetID, c.cfg.Destination.TabName, log)
	readRef := "A:" + c.cfg.Engine.ReadColumnBound

	for i, seed := range seeds {
		srcLog := log.With().
			Str("company", seed.Company).
			Int("source", i+1).
			Int("of", summary.SourcesFound).
			Logger()

		processed := c.processSource(ctx, srcLog, resolver, writer, ledger, seed, readRef, &summary)

		if processed {
			// Fixed pause between sources to bound request rate.
			if err := c.limiter.Wait(ctx); err != nil {
				log.Warn().Err(err).Msg("pacing interrupted, stopping cycle")
				break
			}
		}

		if writer.Len() > 0 && ((i+1)%c.cfg.Engine.FlushEverySources == 0 || i == len(seeds)-1) {
			batch := writer.Len()
			written, err := writer.Flush(ctx, ledger)
			if err != nil {
				summary.FlushErrors++
				log.Error().Err(err).Int("rows", batch).Msg("flush failed, batch dropped until next cycle")
			} else {
				summary.RowsWritten += written
				summary.Flushes++
				log.Info().
					Int("rows", written).
					Int("sources_done", i+1).
					Msg("flushed batch to destination")
			}
		}
	}

	c.finish(&summary, log)
	return summary
}

// processSource handles one source end to end: resolve, fetch, classify,
// pad, and queue. It reports whether the source was actually read (and so
// should count against the pacing budget). Failures skip the source.
func (c *Consolidator) processSource(
	ctx context.Context,
	log zerolog.Logger,
	resolver *Resolver,
	writer *BatchWriter,
	ledger *Ledger,
	seed SourceSeed,
	readRef string,
	summary *CycleSummary,
) bool {
	src, err := resolver.Resolve(ctx, seed)
	if err != nil {
		summary.SourcesSkipped++
		log.Warn().Err(err).Str("url", seed.URL).Msg("skipping source")
		return false
	}

	rows, err := c.svc.ReadRange(ctx, src.SpreadsheetID, sheets.TabRange(src.TabName, readRef))
	if err != nil {
		summary.SourcesSkipped++
		log.Warn().Err(err).Str("tab", src.TabName).Msg("failed to read source, skipping")
		return false
	}
	if len(rows) <= 1 {
		log.Debug().Str("tab", src.TabName).Msg("source has no data rows")
		return false
	}

	header, data := rows[0], rows[1:]
	key := src.Key()

	var newRows [][]string
	var fps []string
	pendingSeen := make(map[string]struct{})
	for _, row := range data {
		fp := Fingerprint(row)
		if ledger.Contains(key, fp) {
			continue
		}
		// A row repeated within the same fetch is only delivered once.
		if _, ok := pendingSeen[fp]; ok {
			continue
		}
		pendingSeen[fp] = struct{}{}
		newRows = append(newRows, row)
		fps = append(fps, fp)
	}

	if len(newRows) == 0 {
		log.Debug().Int("rows", len(data)).Msg("no new rows")
		return true
	}

	writer.SetHeader(append(append([]string(nil), header...), "Company Name"))
	writer.Add(key, padRows(newRows, len(header), src.Company), fps)
	summary.NewRows += len(newRows)
	log.Info().
		Int("new_rows", len(newRows)).
		Int("total_rows", len(data)).
		Msg("found new rows")
	return true
}

// padRows extends each row with empty cells to headerLen columns, then
// appends the company name as the trailing cell.
func padRows(rows [][]string, headerLen int, company string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, 0, headerLen+1)
		padded = append(padded, row...)
		for len(padded) < headerLen {
			padded = append(padded, "")
		}
		out[i] = append(padded, company)
	}
	return out
}

func (c *Consolidator) finish(summary *CycleSummary, log zerolog.Logger) {
	summary.Duration = time.Since(summary.StartedAt)
	c.mu.Lock()
	cp := *summary
	c.last = &cp
	c.mu.Unlock()
	log.Info().
		Int("sources", summary.SourcesFound).
		Int("skipped", summary.SourcesSkipped).
		Int("new_rows", summary.NewRows).
		Int("rows_written", summary.RowsWritten).
		Int("flushes", summary.Flushes).
		Dur("took", summary.Duration).
		Msg("consolidation cycle complete")
}
