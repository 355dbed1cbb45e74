package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FPSCAN_CONFIG_PATH: config file location (default: ~/.config/fpscan.toml)
//   - FPSCAN_HOME: base directory for fpscan data (default: ~/.local/share/fpscan)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("FPSCAN_CONFIG_PATH", ".config", "fpscan.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("FPSCAN_HOME", ".local", "share", "fpscan")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"db_dir":      filepath.Join(baseDir, "db"),
	}, nil
}

// envOrHome returns the value of env if set, otherwise the path rel below
// the user's home directory.
func envOrHome(env string, rel ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
