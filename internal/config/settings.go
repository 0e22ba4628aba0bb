package config

import (
	"errors"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend constants
const (
	BackendGoGit = "go-git"
	BackendGit   = "git"
)

// Timestamp mode constants for log lines
const (
	TimestampOff   = "off"
	TimestampSec   = "sec"
	TimestampMilli = "ms"
	TimestampMicro = "us"
	TimestampNano  = "ns"
)

// DefaultCacheDir is the repository relative directory holding the cache
const DefaultCacheDir = ".palpatine"

// LogSettings configuration for diagnostics output
type LogSettings struct {
	Verbosity int    `mapstructure:"verbosity"`
	Quiet     bool   `mapstructure:"quiet"`
	Timestamp string `mapstructure:"timestamp"`
}

// SearchSettings configuration for marker search
type SearchSettings struct {
	MaxResults int `mapstructure:"max_results"`
}

// Settings application settings
type Settings struct {
	Backend  string         `mapstructure:"backend"`
	CacheDir string         `mapstructure:"cache_dir"`
	Workers  int            `mapstructure:"workers"`
	Exclude  []string       `mapstructure:"exclude"`
	Log      LogSettings    `mapstructure:"log"`
	Search   SearchSettings `mapstructure:"search"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("backend", BackendGoGit)
	v.SetDefault("cache_dir", DefaultCacheDir)
	v.SetDefault("workers", 1)
	v.SetDefault("exclude", []string{})
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.quiet", false)
	v.SetDefault("log.timestamp", TimestampOff)
	v.SetDefault("search.max_results", 20)

	v.SetEnvPrefix("PALPATINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("backend", "PALPATINE_BACKEND")
	_ = v.BindEnv("cache_dir", "PALPATINE_CACHE_DIR")
	_ = v.BindEnv("workers", "PALPATINE_WORKERS")
	_ = v.BindEnv("exclude", "PALPATINE_EXCLUDE")
	_ = v.BindEnv("log.verbosity", "PALPATINE_LOG_VERBOSITY")
	_ = v.BindEnv("log.quiet", "PALPATINE_LOG_QUIET")
	_ = v.BindEnv("log.timestamp", "PALPATINE_LOG_TIMESTAMP")
	_ = v.BindEnv("search.max_results", "PALPATINE_SEARCH_MAX_RESULTS")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		bindFlag(v, flags, "backend", "backend")
		bindFlag(v, flags, "cache_dir", "cache-dir")
		bindFlag(v, flags, "workers", "workers")
		bindFlag(v, flags, "exclude", "exclude")
		bindFlag(v, flags, "log.verbosity", "verbose")
		bindFlag(v, flags, "log.quiet", "quiet")
		bindFlag(v, flags, "log.timestamp", "timestamp")
		bindFlag(v, flags, "search.max_results", "max-results")
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Comma-separated env value arrives as a single element
	excludeEnv := os.Getenv("PALPATINE_EXCLUDE")
	if excludeEnv != "" {
		if len(settings.Exclude) == 0 || (len(settings.Exclude) == 1 && strings.Contains(settings.Exclude[0], ",")) {
			settings.Exclude = strings.Split(excludeEnv, ",")
		}
	}
	for i := range settings.Exclude {
		settings.Exclude[i] = strings.TrimSpace(settings.Exclude[i])
	}
	settings.Exclude = filterEmptyStrings(settings.Exclude)

	return &settings, nil
}

// bindFlag binds a flag to a settings key when the flag set defines it.
// Command specific flag sets do not carry every flag.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for invalid or conflicting configuration.
func ValidateSettings(s *Settings) error {
	switch s.Backend {
	case BackendGoGit, BackendGit:
		// valid
	default:
		return errors.New("backend must be 'go-git' or 'git', got: " + s.Backend)
	}

	if strings.TrimSpace(s.CacheDir) == "" {
		return errors.New("cache-dir cannot be empty")
	}
	if strings.ContainsAny(s.CacheDir, `/\`) || s.CacheDir == "." || s.CacheDir == ".." {
		return errors.New("cache-dir must be a single directory name, got: " + s.CacheDir)
	}

	if s.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	for _, pattern := range s.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.New("invalid exclude pattern: " + pattern)
		}
	}

	if s.Log.Verbosity < 0 {
		return errors.New("verbosity cannot be negative")
	}

	switch s.Log.Timestamp {
	case TimestampOff, TimestampSec, TimestampMilli, TimestampMicro, TimestampNano:
		// valid
	default:
		return errors.New("timestamp must be one of off, sec, ms, us, ns, got: " + s.Log.Timestamp)
	}

	if s.Search.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	return nil
}
