package consolidate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

// BatchWriter accumulates new rows across sources and flushes them to the
// destination in bounded batches. New rows are inserted directly beneath the
// header so the destination reads most-recent-batch-first.
//
// The write-then-commit ordering lives here: fingerprints reach the ledger
// only after the destination write succeeds. A failed flush discards the
// in-memory batch and leaves the ledger untouched, so the same rows are
// rediscovered and re-attempted next cycle.
type BatchWriter struct {
	svc           sheets.Service
	spreadsheetID string
	tabName       string
	log           zerolog.Logger

	rows    [][]string
	pending map[string][]string

	header         []string
	headerPrepared bool
}

func NewBatchWriter(svc sheets.Service, spreadsheetID, tabName string, log zerolog.Logger) *BatchWriter {
	return &BatchWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabName:       tabName,
		log:           log,
		pending:       make(map[string][]string),
	}
}

// SetHeader captures the destination header. Only the first call of a run
// takes effect: the header comes from the first source that produced new
// rows.
func (w *BatchWriter) SetHeader(header []string) {
	if w.header == nil {
		w.header = append([]string(nil), header...)
	}
}

// Add queues padded rows and their fingerprints for the next flush.
func (w *BatchWriter) Add(sourceKey string, rows [][]string, fps []string) {
	w.rows = append(w.rows, rows...)
	w.pending[sourceKey] = append(w.pending[sourceKey], fps...)
}

// Len reports the number of rows awaiting a flush.
func (w *BatchWriter) Len() int {
	return len(w.rows)
}

// Flush writes the pending batch to the destination and, only on success,
// commits the batch's fingerprints to the ledger. It returns the number of
// rows written. An empty batch is a no-op.
func (w *BatchWriter) Flush(ctx context.Context, ledger *Ledger) (int, error) {
	if len(w.rows) == 0 {
		return 0, nil
	}

	rows := w.rows
	pending := w.pending
	w.rows = nil
	w.pending = make(map[string][]string)

	if !w.headerPrepared && w.header != nil {
		if err := w.prepareDestination(ctx); err != nil {
			return 0, err
		}
		w.headerPrepared = true
	}

	if err := w.prepend(ctx, rows); err != nil {
		return 0, err
	}

	if err := ledger.Commit(pending); err != nil {
		// Rows are in the destination but their fingerprints are not durable:
		// they will be redelivered next cycle. Duplicates, never losses.
		return len(rows), fmt.Errorf("batch written but ledger not persisted: %w", err)
	}
	return len(rows), nil
}

// prepareDestination makes sure the destination tab exists and writes the
// header row, but only into an empty tab. A destination that already holds
// data is never overwritten.
func (w *BatchWriter) prepareDestination(ctx context.Context) error {
	tabs, err := w.svc.Tabs(ctx, w.spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to inspect destination: %w", err)
	}
	exists := false
	for _, t := range tabs {
		if t.Title == w.tabName {
			exists = true
			break
		}
	}
	if !exists {
		if err := w.svc.CreateTab(ctx, w.spreadsheetID, w.tabName); err != nil {
			return err
		}
		w.log.Info().Str("tab", w.tabName).Msg("created destination tab")
	}

	firstCell, err := w.svc.ReadRange(ctx, w.spreadsheetID, sheets.TabRange(w.tabName, "A1:A1"))
	if err != nil {
		return fmt.Errorf("failed to check destination state: %w", err)
	}
	if len(firstCell) == 0 {
		if err := w.svc.WriteRange(ctx, w.spreadsheetID, sheets.TabRange(w.tabName, "A1"), [][]string{w.header}); err != nil {
			return err
		}
		w.log.Info().Int("columns", len(w.header)).Msg("destination was empty, wrote header row")
	} else {
		w.log.Debug().Msg("destination already has data, header untouched")
	}
	return nil
}

// prepend inserts blank rows right after the header and fills them, pushing
// prior data down. An entirely empty destination column is written directly.
func (w *BatchWriter) prepend(ctx context.Context, rows [][]string) error {
	colA, err := w.svc.ReadRange(ctx, w.spreadsheetID, sheets.TabRange(w.tabName, "A:A"))
	if err != nil {
		return fmt.Errorf("failed to read destination row count: %w", err)
	}

	target := sheets.TabRange(w.tabName, "A2")
	if len(colA) == 0 {
		return w.svc.WriteRange(ctx, w.spreadsheetID, target, rows)
	}

	tabID, err := w.destinationTabID(ctx)
	if err != nil {
		return err
	}
	if err := w.svc.InsertRows(ctx, w.spreadsheetID, tabID, 1, 1+int64(len(rows))); err != nil {
		return err
	}
	return w.svc.WriteRange(ctx, w.spreadsheetID, target, rows)
}

func (w *BatchWriter) destinationTabID(ctx context.Context) (int64, error) {
	tabs, err := w.svc.Tabs(ctx, w.spreadsheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve destination tab id: %w", err)
	}
	for _, t := range tabs {
		if t.Title == w.tabName {
			return t.ID, nil
		}
	}
	return 0, nil
}
