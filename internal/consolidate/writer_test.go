package consolidate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return LoadLedger(filepath.Join(t.TempDir(), "ledger.json"), zerolog.Nop())
}

func TestFlushEmptyDestinationWritesHeaderAndRows(t *testing.T) {
	fake := sheets.NewFake()
	tabID := fake.AddTab("dest", "Sheet1", nil)

	w := NewBatchWriter(fake, "dest", "Sheet1", zerolog.Nop())
	w.SetHeader([]string{"Name", "Email", "Company Name"})
	w.Add("src_0", [][]string{
		{"alice", "a@x.com", "Acme"},
		{"bob", "b@x.com", "Acme"},
	}, []string{"fp1", "fp2"})

	ledger := newTestLedger(t)
	n, err := w.Flush(context.Background(), ledger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, w.Len())

	grid := fake.Grid("dest", tabID)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"Name", "Email", "Company Name"}, grid[0])
	assert.Equal(t, []string{"alice", "a@x.com", "Acme"}, grid[1])
	assert.Equal(t, []string{"bob", "b@x.com", "Acme"}, grid[2])
	assert.True(t, ledger.Contains("src_0", "fp2"))
	assert.True(t, ledger.Contains("src_0", "fp1"))
}

func TestFlushPrependsAboveExistingRows(t *testing.T) {
	fake := sheets.NewFake()
	tabID := fake.AddTab("dest", "Sheet1", [][]string{
		{"Name", "Email", "Company Name"},
		{"old1", "o1@x.com", "Oldco"},
		{"old2", "o2@x.com", "Oldco"},
	})

	w := NewBatchWriter(fake, "dest", "Sheet1", zerolog.Nop())
	w.SetHeader([]string{"Name", "Email", "Company Name"})
	w.Add("src_0", [][]string{
		{"new1", "n1@x.com", "Newco"},
		{"new2", "n2@x.com", "Newco"},
	}, []string{"fp1", "fp2"})

	_, err := w.Flush(context.Background(), newTestLedger(t))
	require.NoError(t, err)

	grid := fake.Grid("dest", tabID)
	require.Len(t, grid, 5)
	// header kept, new batch directly beneath it in batch order, old rows pushed down
	assert.Equal(t, "Name", grid[0][0])
	assert.Equal(t, "new1", grid[1][0])
	assert.Equal(t, "new2", grid[2][0])
	assert.Equal(t, "old1", grid[3][0])
	assert.Equal(t, "old2", grid[4][0])
	assert.Equal(t, 1, fake.InsertCalls)
}

func TestFlushNeverOverwritesNonEmptyDestinationHeader(t *testing.T) {
	fake := sheets.NewFake()
	tabID := fake.AddTab("dest", "Sheet1", [][]string{
		{"Existing Header"},
	})

	w := NewBatchWriter(fake, "dest", "Sheet1", zerolog.Nop())
	w.SetHeader([]string{"Name", "Company Name"})
	w.Add("src_0", [][]string{{"alice", "Acme"}}, []string{"fp1"})

	_, err := w.Flush(context.Background(), newTestLedger(t))
	require.NoError(t, err)

	grid := fake.Grid("dest", tabID)
	assert.Equal(t, "Existing Header", grid[0][0])
	assert.Equal(t, "alice", grid[1][0])
}

func TestFlushCreatesMissingDestinationTab(t *testing.T) {
	fake := sheets.NewFake()
	fake.AddSpreadsheet("dest")

	w := NewBatchWriter(fake, "dest", "Consolidated", zerolog.Nop())
	w.SetHeader([]string{"Name", "Company Name"})
	w.Add("src_0", [][]string{{"alice", "Acme"}}, []string{"fp1"})

	_, err := w.Flush(context.Background(), newTestLedger(t))
	require.NoError(t, err)

	tabs, err := fake.Tabs(context.Background(), "dest")
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	assert.Equal(t, "Consolidated", tabs[0].Title)
}

func TestFlushFailureLeavesLedgerUnpersisted(t *testing.T) {
	fake := sheets.NewFake()
	fake.AddTab("dest", "Sheet1", nil)
	fake.WriteErr = errors.New("quota exceeded")

	w := NewBatchWriter(fake, "dest", "Sheet1", zerolog.Nop())
	w.SetHeader([]string{"Name", "Company Name"})
	w.Add("src_0", [][]string{{"alice", "Acme"}}, []string{"fp1"})

	ledger := newTestLedger(t)
	_, err := w.Flush(context.Background(), ledger)
	assert.Error(t, err)

	// batch is dropped, fingerprints stay out of the ledger: the rows will be
	// rediscovered next cycle
	assert.Equal(t, 0, w.Len())
	assert.False(t, ledger.Contains("src_0", "fp1"))
}

func TestFlushNoopWhenEmpty(t *testing.T) {
	fake := sheets.NewFake()
	fake.AddTab("dest", "Sheet1", nil)

	w := NewBatchWriter(fake, "dest", "Sheet1", zerolog.Nop())
	n, err := w.Flush(context.Background(), newTestLedger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, fake.WriteCalls)
}
