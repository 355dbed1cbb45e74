package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:   "test-host-abc",
		BaseDir:  "/home/user/.local/share/fpscan",
		LogDir:   "/home/user/.local/share/fpscan/log",
		Database: DatabaseConfig{Type: "postgres", DSN: "postgres://localhost/fpscan?sslmode=disable"},
		Scan: ScanConfig{
			Exclude:    []string{"*.tmp", "node_modules"},
			Include:    []string{"*.jpg"},
			MinSize:    "1KB",
			IgnoreFile: ".fpignore",
		},
		Metrics: MetricsConfig{PushgatewayURL: "http://localhost:9091", Job: "fpscan"},
		Events:  EventsConfig{NATSURL: "nats://localhost:4222", SubjectPrefix: "fp", ProgressEvery: 50},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if len(got.Scan.Exclude) != 2 || got.Scan.Exclude[1] != "node_modules" {
		t.Errorf("Scan.Exclude = %v, want %v", got.Scan.Exclude, original.Scan.Exclude)
	}
	if got.Scan.MinSize != "1KB" {
		t.Errorf("Scan.MinSize = %q, want %q", got.Scan.MinSize, "1KB")
	}
	if got.Metrics != original.Metrics {
		t.Errorf("Metrics = %+v, want %+v", got.Metrics, original.Metrics)
	}
	if got.Events != original.Events {
		t.Errorf("Events = %+v, want %+v", got.Events, original.Events)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/fpscan")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.LogDir != "/data/fpscan/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/fpscan/log")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/fpscan/db" {
		t.Errorf("Database = %+v, want sqlite in /data/fpscan/db", cfg.Database)
	}
	if cfg.Scan.IgnoreFile != DefaultIgnoreFile {
		t.Errorf("Scan.IgnoreFile = %q, want %q", cfg.Scan.IgnoreFile, DefaultIgnoreFile)
	}
	if cfg.Events.ProgressEvery != 1000 {
		t.Errorf("Events.ProgressEvery = %d, want 1000", cfg.Events.ProgressEvery)
	}
}

func TestScanConfig_Sizes(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"empty means unbounded", "", 0, false},
		{"plain bytes", "512", 512, false},
		{"decimal unit", "1KB", 1000, false},
		{"binary unit", "1KiB", 1024, false},
		{"megabytes", "2 MB", 2000000, false},
		{"garbage", "lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ScanConfig{MinSize: tt.value, MaxSize: tt.value}

			got, err := cfg.MinSizeBytes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MinSizeBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MinSizeBytes() = %d, want %d", got, tt.want)
			}

			got, err = cfg.MaxSizeBytes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MaxSizeBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "max_size") {
				t.Errorf("MaxSizeBytes() error = %v, want it to name the field", err)
			}
			if got != tt.want {
				t.Errorf("MaxSizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fpscan.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fpscan.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fpscan.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/fpscan.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
