package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds tool-wide settings loaded from an ini file. Zero values fall
// back to the defaults below; CLI flags override file values.
type Config struct {
	AdbPath       string        // adb executable, default "adb" from PATH
	CaptureTTL    time.Duration // capture cache freshness window
	PollInterval  time.Duration // Wait polling tick
	QueryTimeout  time.Duration // per-attempt resolution query bound
	ServerAddress string        // control server listen address
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		AdbPath:       "adb",
		CaptureTTL:    time.Second,
		PollInterval:  100 * time.Millisecond,
		QueryTimeout:  5 * time.Second,
		ServerAddress: "localhost:12100",
	}
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scriptrunner.ini")
}

// LoadConfig reads settings from path. A missing file is not an error and
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	adb := file.Section("adb")
	if v := adb.Key("path").String(); v != "" {
		cfg.AdbPath = v
	}
	if v, err := adb.Key("query_timeout_ms").Int(); err == nil && v > 0 {
		cfg.QueryTimeout = time.Duration(v) * time.Millisecond
	}

	engine := file.Section("engine")
	if v, err := engine.Key("capture_ttl_ms").Int(); err == nil && v > 0 {
		cfg.CaptureTTL = time.Duration(v) * time.Millisecond
	}
	if v, err := engine.Key("poll_interval_ms").Int(); err == nil && v > 0 {
		cfg.PollInterval = time.Duration(v) * time.Millisecond
	}

	server := file.Section("server")
	if v := server.Key("listen").String(); v != "" {
		cfg.ServerAddress = v
	}

	return cfg, nil
}
