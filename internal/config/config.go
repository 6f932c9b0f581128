package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type MasterConfig struct {
	SpreadsheetID string `toml:"spreadsheet_id"`
	TabName       string `toml:"tab_name"`
	CompanyColumn string `toml:"company_column"`
	URLColumn     string `toml:"url_column"`
}

type DestinationConfig struct {
	SpreadsheetID string `toml:"spreadsheet_id"`
	TabName       string `toml:"tab_name"`
}

type GoogleConfig struct {
	CredentialsFile string `toml:"credentials_file"`
}

type EngineConfig struct {
	LedgerPath        string `toml:"ledger_path"`
	FlushEverySources int    `toml:"flush_every_sources"`
	SourcePauseSecs   int    `toml:"source_pause_seconds"`
	IdleMinutes       int    `toml:"idle_minutes"`
	RetryMinutes      int    `toml:"retry_minutes"`
	ReadColumnBound   string `toml:"read_column_bound"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type Config struct {
	Master      MasterConfig      `toml:"master"`
	Destination DestinationConfig `toml:"destination"`
	Google      GoogleConfig      `toml:"google"`
	Engine      EngineConfig      `toml:"engine"`
	Server      ServerConfig      `toml:"server"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv builds a config from environment variables and defaults alone, for
// deployments that carry no config file.
func FromEnv() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

// applyEnv lets deployment environments override file values without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MASTER_SPREADSHEET_ID"); v != "" {
		c.Master.SpreadsheetID = v
	}
	if v := os.Getenv("MASTER_TAB_NAME"); v != "" {
		c.Master.TabName = v
	}
	if v := os.Getenv("TARGET_SPREADSHEET_ID"); v != "" {
		c.Destination.SpreadsheetID = v
	}
	if v := os.Getenv("TARGET_TAB_NAME"); v != "" {
		c.Destination.TabName = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Google.CredentialsFile = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		c.Engine.LedgerPath = v
	}
	if v := os.Getenv("STATUS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FLUSH_EVERY_SOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.FlushEverySources = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Master.TabName == "" {
		c.Master.TabName = "Active Clients"
	}
	if c.Master.CompanyColumn == "" {
		c.Master.CompanyColumn = "Company"
	}
	if c.Master.URLColumn == "" {
		c.Master.URLColumn = "Appointment Spreadsheet:"
	}
	if c.Destination.TabName == "" {
		c.Destination.TabName = "Sheet1"
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = "service-account.json"
	}
	if c.Engine.LedgerPath == "" {
		c.Engine.LedgerPath = "processed_rows.json"
	}
	if c.Engine.FlushEverySources <= 0 {
		c.Engine.FlushEverySources = 25
	}
	if c.Engine.SourcePauseSecs <= 0 {
		c.Engine.SourcePauseSecs = 3
	}
	if c.Engine.IdleMinutes <= 0 {
		c.Engine.IdleMinutes = 4 * 60
	}
	if c.Engine.RetryMinutes <= 0 {
		c.Engine.RetryMinutes = 30
	}
	if c.Engine.ReadColumnBound == "" {
		c.Engine.ReadColumnBound = "Q"
	}
}

// Validate reports configuration errors that must abort startup. Everything else
// degrades at runtime (missing columns, unreachable sources) and is non-fatal.
func (c *Config) Validate() error {
	if c.Destination.SpreadsheetID == "" {
		return fmt.Errorf("destination.spreadsheet_id is not set")
	}
	if c.Master.SpreadsheetID == "" {
		return fmt.Errorf("master.spreadsheet_id is not set")
	}
	return nil
}

func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.Engine.IdleMinutes) * time.Minute
}

func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Engine.RetryMinutes) * time.Minute
}

func (c *Config) SourcePause() time.Duration {
	return time.Duration(c.Engine.SourcePauseSecs) * time.Second
}
