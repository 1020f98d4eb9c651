package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"

	"media-catalog/internal/logging"
)

// DefaultFile is read when no config file is named explicitly.
const DefaultFile = "config.toml"

// DatabaseFile is the catalog file name inside DatabaseDir.
const DatabaseFile = "catalog.db"

// Config holds all application configuration
type Config struct {
	DestDir     string
	DatabaseDir string

	Workers     int
	CPUWorkers  int
	FileTimeout time.Duration

	DetectorCmd         string
	DetectorConcurrency int

	FFmpegPath  string
	FFprobePath string

	RawDeveloper string

	MetricsAddr   string
	WatchDebounce time.Duration
	MemoryLimit   int64

	// Derived paths
	DatabasePath string
	// ConfigFile is the TOML file that was read, if any.
	ConfigFile string
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Catalog struct {
		DestDir     string `toml:"dest_dir"`
		DatabaseDir string `toml:"database_dir"`
	} `toml:"catalog"`
	Ingest struct {
		Workers       int    `toml:"workers"`
		CPUWorkers    int    `toml:"cpu_workers"`
		FileTimeout   string `toml:"file_timeout"`
		WatchDebounce string `toml:"watch_debounce"`
		MemoryLimit   string `toml:"memory_limit"`
	} `toml:"ingest"`
	Detector struct {
		Command     string `toml:"command"`
		Concurrency int    `toml:"concurrency"`
	} `toml:"detector"`
	Video struct {
		FFmpeg  string `toml:"ffmpeg"`
		FFprobe string `toml:"ffprobe"`
	} `toml:"video"`
	Raw struct {
		Developer string `toml:"developer"`
	} `toml:"raw"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DestDir:             "media",
		DatabaseDir:         "database",
		FileTimeout:         5 * time.Minute,
		DetectorConcurrency: 1,
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		RawDeveloper:        "dcraw",
		WatchDebounce:       2 * time.Second,
	}
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment, then prepares the directories. An empty path reads
// DefaultFile when it exists.
func Load(path string) (*Config, error) {
	cfg, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	cfg.Log()
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve merges defaults, file and environment without touching the
// filesystem beyond reading the file.
func Resolve(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.applyFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else {
		cfg.ConfigFile = path
	}

	cfg.applyEnv()

	if cfg.Workers < 0 || cfg.CPUWorkers < 0 {
		return nil, fmt.Errorf("worker counts must not be negative")
	}
	if cfg.DetectorConcurrency < 1 {
		cfg.DetectorConcurrency = 1
	}
	if cfg.FileTimeout < 0 {
		return nil, fmt.Errorf("file timeout must not be negative: %v", cfg.FileTimeout)
	}

	var err error
	if cfg.DestDir, err = filepath.Abs(cfg.DestDir); err != nil {
		return nil, fmt.Errorf("failed to resolve destination directory path: %w", err)
	}
	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, DatabaseFile)

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	setString(&c.DestDir, fc.Catalog.DestDir)
	setString(&c.DatabaseDir, fc.Catalog.DatabaseDir)
	if fc.Ingest.Workers != 0 {
		c.Workers = fc.Ingest.Workers
	}
	if fc.Ingest.CPUWorkers != 0 {
		c.CPUWorkers = fc.Ingest.CPUWorkers
	}
	if err := setDuration(&c.FileTimeout, fc.Ingest.FileTimeout); err != nil {
		return fmt.Errorf("%s: ingest.file_timeout: %w", path, err)
	}
	if err := setDuration(&c.WatchDebounce, fc.Ingest.WatchDebounce); err != nil {
		return fmt.Errorf("%s: ingest.watch_debounce: %w", path, err)
	}
	if err := setBytes(&c.MemoryLimit, fc.Ingest.MemoryLimit); err != nil {
		return fmt.Errorf("%s: ingest.memory_limit: %w", path, err)
	}
	setString(&c.DetectorCmd, fc.Detector.Command)
	if fc.Detector.Concurrency != 0 {
		c.DetectorConcurrency = fc.Detector.Concurrency
	}
	setString(&c.FFmpegPath, fc.Video.FFmpeg)
	setString(&c.FFprobePath, fc.Video.FFprobe)
	setString(&c.RawDeveloper, fc.Raw.Developer)
	setString(&c.MetricsAddr, fc.Metrics.Addr)
	return nil
}

// applyEnv overrides fields from the environment. Malformed values are
// logged and ignored.
func (c *Config) applyEnv() {
	c.DestDir = getEnv("DEST_DIR", c.DestDir)
	c.DatabaseDir = getEnv("DATABASE_DIR", c.DatabaseDir)
	c.Workers = getEnvInt("INGEST_WORKERS", c.Workers)
	c.CPUWorkers = getEnvInt("CPU_WORKERS", c.CPUWorkers)
	c.FileTimeout = getEnvDuration("FILE_TIMEOUT", c.FileTimeout)
	c.DetectorCmd = getEnv("DETECTOR_CMD", c.DetectorCmd)
	c.DetectorConcurrency = getEnvInt("DETECTOR_CONCURRENCY", c.DetectorConcurrency)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.FFprobePath = getEnv("FFPROBE_PATH", c.FFprobePath)
	c.RawDeveloper = getEnv("RAW_DEVELOPER", c.RawDeveloper)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.WatchDebounce = getEnvDuration("WATCH_DEBOUNCE", c.WatchDebounce)

	if value := os.Getenv("MEMORY_LIMIT"); value != "" {
		if err := setBytes(&c.MemoryLimit, value); err != nil {
			logging.Warn("Invalid MEMORY_LIMIT %q, using default: %v", value, err)
		}
	}
}

// Prepare creates the destination and database directories and checks that
// both are writable.
func (c *Config) Prepare() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct{ path, name string }{
		{c.DestDir, "destination"},
		{c.DatabaseDir, "database"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable: %s", dir.name, dir.path)
	}
	return nil
}

// Log prints the effective configuration.
func (c *Config) Log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.ConfigFile != "" {
		logging.Info("  Config file:          %s", c.ConfigFile)
	}
	logging.Info("  DEST_DIR:             %s", c.DestDir)
	logging.Info("  DATABASE_DIR:         %s", c.DatabaseDir)
	logging.Info("  INGEST_WORKERS:       %s", autoString(c.Workers))
	logging.Info("  CPU_WORKERS:          %s", autoString(c.CPUWorkers))
	logging.Info("  FILE_TIMEOUT:         %v", c.FileTimeout)
	logging.Info("  DETECTOR_CMD:         %s", orNone(c.DetectorCmd))
	logging.Info("  DETECTOR_CONCURRENCY: %d", c.DetectorConcurrency)
	logging.Info("  FFMPEG_PATH:          %s", c.FFmpegPath)
	logging.Info("  FFPROBE_PATH:         %s", c.FFprobePath)
	logging.Info("  RAW_DEVELOPER:        %s", c.RawDeveloper)
	logging.Info("  METRICS_ADDR:         %s", orNone(c.MetricsAddr))
	logging.Info("  WATCH_DEBOUNCE:       %v", c.WatchDebounce)
	if c.MemoryLimit > 0 {
		logging.Info("  MEMORY_LIMIT:         %s", humanize.IBytes(uint64(c.MemoryLimit)))
	} else {
		logging.Info("  MEMORY_LIMIT:         (GOMEMLIMIT)")
	}
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
}

func autoString(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setBytes(dst *int64, value string) error {
	if value == "" {
		return nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return err
	}
	*dst = int64(n)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
