package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// Config represents the main configuration for fpscan.
type Config struct {
	HostID   string         `toml:"host_id"`
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	LogLevel string         `toml:"log_level,omitempty"` // "debug", "info", "warn" or "error"
	Database DatabaseConfig `toml:"database"`
	Scan     ScanConfig     `toml:"scan"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Events   EventsConfig   `toml:"events"`
}

// DatabaseConfig represents configuration for the fingerprint database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type        string `toml:"type"`                   // "sqlite", "memory" or "postgres"
	DataDir     string `toml:"data_dir,omitempty"`     // only used for type=sqlite
	SnapshotDir string `toml:"snapshot_dir,omitempty"` // only used for type=sqlite; copy of the DB after each scan
	DSN         string `toml:"dsn,omitempty"`          // only used for type=postgres
}

// ScanConfig holds the filter defaults applied to directory scans.
type ScanConfig struct {
	Exclude    []string `toml:"exclude"`
	Include    []string `toml:"include"`
	MinSize    string   `toml:"min_size,omitempty"` // humanized, e.g. "1KB"
	MaxSize    string   `toml:"max_size,omitempty"`
	IgnoreFile string   `toml:"ignore_file"`
}

// MetricsConfig configures pushing scan metrics to a Prometheus pushgateway.
// Metrics are not pushed when PushgatewayURL is empty.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url,omitempty"`
	Job            string `toml:"job,omitempty"`
}

// EventsConfig configures publishing scan events to NATS.
// Events are not published when NATSURL is empty.
type EventsConfig struct {
	NATSURL       string `toml:"nats_url,omitempty"`
	SubjectPrefix string `toml:"subject_prefix,omitempty"`
	ProgressEvery int    `toml:"progress_every,omitempty"` // publish progress every N entries
}

// DefaultIgnoreFile is the per-directory ignore file name.
const DefaultIgnoreFile = ".fpignore"

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Scan: ScanConfig{
			IgnoreFile: DefaultIgnoreFile,
		},
		Metrics: MetricsConfig{
			Job: "fpscan",
		},
		Events: EventsConfig{
			SubjectPrefix: "fpscan",
			ProgressEvery: 1000,
		},
	}
}

// MinSizeBytes parses Scan.MinSize. An empty value means no bound.
func (c *ScanConfig) MinSizeBytes() (int64, error) {
	return parseSize("min_size", c.MinSize)
}

// MaxSizeBytes parses Scan.MaxSize. An empty value means no bound.
func (c *ScanConfig) MaxSizeBytes() (int64, error) {
	return parseSize("max_size", c.MaxSize)
}

func parseSize(field, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return int64(n), nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
