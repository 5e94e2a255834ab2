package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Google   GoogleConfig   `toml:"google"`
	Drive    DriveConfig    `toml:"drive"`
	Summary  SummaryConfig  `toml:"summary"`
	Database DatabaseConfig `toml:"database"`
	Retry    RetryConfig    `toml:"retry"`
}

// GoogleConfig contains Google API credentials.
type GoogleConfig struct {
	CredentialsPath string `toml:"credentials_path"`
}

// DriveConfig locates the Drive folders and files the pipeline operates on.
type DriveConfig struct {
	SetsFolderID      string `toml:"sets_folder_id"`
	SourceFolderID    string `toml:"source_folder_id"`
	SummaryFolderName string `toml:"summary_folder_name"`
	CollectionName    string `toml:"collection_name"`
	SummaryTabName    string `toml:"summary_tab_name"`
	TempTabName       string `toml:"temp_tab_name"`
}

// SummaryConfig controls how year summaries are assembled.
type SummaryConfig struct {
	AllowedHeaders []string `toml:"allowed_headers"`
	ColumnOrder    []string `toml:"column_order"`
	Workers        int      `toml:"workers"`
	RateLimit      float64  `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RetryConfig tunes the backoff policy for remote Sheets/Drive calls.
type RetryConfig struct {
	MaxAttempts      int     `toml:"max_attempts"`
	BaseDelaySeconds float64 `toml:"base_delay_seconds"`
	MaxDelaySeconds  float64 `toml:"max_delay_seconds"`
}

// BaseDelay returns the configured base delay as a [time.Duration].
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds * float64(time.Second))
}

// MaxDelay returns the configured delay cap as a [time.Duration].
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelaySeconds * float64(time.Second))
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
