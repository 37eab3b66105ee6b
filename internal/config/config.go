// Package config provides configuration management for the Heimdex Editor.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort              = 8788
	DefaultLogLevel          = "info"
	DefaultDataDir           = ".heimdex-editor"
	DefaultPixelsPerSecond   = 40
	DefaultTickIntervalMs    = 16
	DefaultLibraryDSN        = ":memory:"
	DefaultFFprobePath       = "ffprobe"
	DefaultImportConcurrency = 4
	DefaultProbeTimeout      = 30 // seconds

	// Environment variable names
	EnvPort              = "HEIMDEX_EDITOR_PORT"
	EnvLogLevel          = "HEIMDEX_EDITOR_LOG_LEVEL"
	EnvDataDir           = "HEIMDEX_EDITOR_DATA_DIR"
	EnvHeadless          = "HEIMDEX_EDITOR_HEADLESS"
	EnvToken             = "HEIMDEX_EDITOR_TOKEN"
	EnvPixelsPerSecond   = "HEIMDEX_EDITOR_PIXELS_PER_SECOND"
	EnvTickIntervalMs    = "HEIMDEX_EDITOR_TICK_INTERVAL_MS"
	EnvLibraryDSN        = "HEIMDEX_EDITOR_LIBRARY_DSN"
	EnvFFprobePath       = "HEIMDEX_EDITOR_FFPROBE_PATH"
	EnvImportConcurrency = "HEIMDEX_EDITOR_IMPORT_CONCURRENCY"
	EnvWatchDir          = "HEIMDEX_EDITOR_WATCH_DIR"

	// ExportDirName is where EDL exports land under the data directory.
	ExportDirName = "exports"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	ExportDir() string
	Headless() bool
	Token() string
	PixelsPerSecond() float64
	TickInterval() time.Duration
	LibraryDSN() string
	FFprobePath() string
	ProbeTimeout() time.Duration
	ImportConcurrency() int
	WatchDir() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port              int
	logLevel          string
	dataDir           string
	headless          bool
	token             string
	pixelsPerSecond   float64
	tickIntervalMs    int
	libraryDSN        string
	ffprobePath       string
	importConcurrency int
	watchDir          string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:              DefaultPort,
		logLevel:          DefaultLogLevel,
		dataDir:           defaultDataDir(),
		pixelsPerSecond:   DefaultPixelsPerSecond,
		tickIntervalMs:    DefaultTickIntervalMs,
		libraryDSN:        DefaultLibraryDSN,
		ffprobePath:       DefaultFFprobePath,
		importConcurrency: DefaultImportConcurrency,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.token = strings.TrimSpace(os.Getenv(EnvToken))

	if v := os.Getenv(EnvPixelsPerSecond); v != "" {
		pps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPixelsPerSecond, err)
		}
		if pps <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvPixelsPerSecond)
		}
		cfg.pixelsPerSecond = pps
	}

	if v := os.Getenv(EnvTickIntervalMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTickIntervalMs, err)
		}
		if ms < 1 || ms > 1000 {
			return nil, fmt.Errorf("invalid %s: must be between 1 and 1000", EnvTickIntervalMs)
		}
		cfg.tickIntervalMs = ms
	}

	if dsn := os.Getenv(EnvLibraryDSN); dsn != "" {
		cfg.libraryDSN = dsn
	}

	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		cfg.ffprobePath = fp
	}

	if v := os.Getenv(EnvImportConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvImportConcurrency, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvImportConcurrency)
		}
		cfg.importConcurrency = n
	}

	cfg.watchDir = strings.TrimSpace(os.Getenv(EnvWatchDir))

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// ExportDir returns the directory EDL exports are written to
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, ExportDirName)
}

// Headless reports whether the tray icon is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// Token returns the bearer token required by the API, or "" when auth is off
func (c *EnvConfig) Token() string {
	return c.token
}

func (c *EnvConfig) PixelsPerSecond() float64 {
	return c.pixelsPerSecond
}

func (c *EnvConfig) TickInterval() time.Duration {
	return time.Duration(c.tickIntervalMs) * time.Millisecond
}

// LibraryDSN returns the SQLite DSN of the asset library. The default keeps
// the library in memory for the lifetime of the process.
func (c *EnvConfig) LibraryDSN() string {
	return c.libraryDSN
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return time.Duration(DefaultProbeTimeout) * time.Second
}

func (c *EnvConfig) ImportConcurrency() int {
	return c.importConcurrency
}

// WatchDir returns the folder whose media files are imported automatically,
// or "" when watching is off
func (c *EnvConfig) WatchDir() string {
	return c.watchDir
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
