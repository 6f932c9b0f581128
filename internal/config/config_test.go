package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[master]
spreadsheet_id = "master-id"

[destination]
spreadsheet_id = "dest-id"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "master-id", cfg.Master.SpreadsheetID)
	assert.Equal(t, "Active Clients", cfg.Master.TabName)
	assert.Equal(t, "Company", cfg.Master.CompanyColumn)
	assert.Equal(t, "Appointment Spreadsheet:", cfg.Master.URLColumn)
	assert.Equal(t, "Sheet1", cfg.Destination.TabName)
	assert.Equal(t, "processed_rows.json", cfg.Engine.LedgerPath)
	assert.Equal(t, 25, cfg.Engine.FlushEverySources)
	assert.Equal(t, "Q", cfg.Engine.ReadColumnBound)
	assert.Equal(t, 4*time.Hour, cfg.IdleInterval())
	assert.Equal(t, 30*time.Minute, cfg.RetryInterval())
	assert.Equal(t, 3*time.Second, cfg.SourcePause())
}

func TestLoadFileValuesWin(t *testing.T) {
	path := writeConfig(t, `
[master]
spreadsheet_id = "m"
tab_name = "Clients"
company_column = "Client"
url_column = "Sheet URL"

[destination]
spreadsheet_id = "d"
tab_name = "Consolidated"

[engine]
flush_every_sources = 10
idle_minutes = 60
retry_minutes = 5

[server]
addr = ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Clients", cfg.Master.TabName)
	assert.Equal(t, "Client", cfg.Master.CompanyColumn)
	assert.Equal(t, 10, cfg.Engine.FlushEverySources)
	assert.Equal(t, time.Hour, cfg.IdleInterval())
	assert.Equal(t, 5*time.Minute, cfg.RetryInterval())
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TARGET_SPREADSHEET_ID", "env-dest")
	t.Setenv("LEDGER_PATH", "/var/lib/consolidator/ledger.json")
	t.Setenv("FLUSH_EVERY_SOURCES", "7")

	path := writeConfig(t, `
[master]
spreadsheet_id = "m"

[destination]
spreadsheet_id = "file-dest"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-dest", cfg.Destination.SpreadsheetID)
	assert.Equal(t, "/var/lib/consolidator/ledger.json", cfg.Engine.LedgerPath)
	assert.Equal(t, 7, cfg.Engine.FlushEverySources)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "not [valid toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("MASTER_SPREADSHEET_ID", "")
	t.Setenv("TARGET_SPREADSHEET_ID", "")

	cfg := FromEnv()
	assert.Error(t, cfg.Validate(), "missing destination must be fatal")

	cfg.Destination.SpreadsheetID = "d"
	assert.Error(t, cfg.Validate(), "missing master must be fatal")

	cfg.Master.SpreadsheetID = "m"
	assert.NoError(t, cfg.Validate())
}
