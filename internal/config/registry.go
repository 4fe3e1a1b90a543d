package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "knxgw"
	configFile = "config.yaml"

	// PathEnvVar overrides the config file location.
	PathEnvVar = "KNXGW_CONFIG"
)

var (
	loadOnce sync.Once
	loaded   Constants
	loadErr  error
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/knxgw or $HOME/.config/knxgw
//   - macOS: $HOME/.config/knxgw
//   - Windows: %LOCALAPPDATA%\knxgw
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".config", appName), nil
	}
}

// GetConfigPath returns the config file path, honoring KNXGW_CONFIG.
func GetConfigPath() (string, error) {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the constants once per process. Later calls return the same
// value. On error the defaults are kept in place and the error is returned
// on every call.
func Load() (Constants, error) {
	loadOnce.Do(func() {
		loaded, loadErr = loadFromDisk()
		if loadErr != nil {
			loaded = Defaults()
		}
	})
	return loaded, loadErr
}

// Current returns the loaded constants, or the defaults if loading failed.
func Current() Constants {
	c, _ := Load()
	return c
}

func loadFromDisk() (Constants, error) {
	path, err := GetConfigPath()
	if err != nil {
		return Constants{}, fmt.Errorf("failed to get config path: %w", err)
	}
	c, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return c, err
}

// LoadFile parses a config file. Keys missing from the file keep their
// default values.
func LoadFile(path string) (Constants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Constants{}, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Defaults()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Constants{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Constants{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

// Marshal renders c as a config file, header comment included.
func Marshal(c Constants) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte(`# knxgw configuration
# KNXnet/IP discovery constants. Durations use Go syntax (2s, 1500ms).

`)
	return append(header, data...), nil
}

// Save writes c to path atomically, creating the directory if needed.
func Save(path string, c Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
