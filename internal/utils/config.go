package utils

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "24h" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Prefork bool   `yaml:"prefork"`
}

// LoggerConfig holds log file rotation and level settings.
type LoggerConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
}

// CacheConfig holds Redis settings for the conversion result cache and the
// rate limiter storage.
type CacheConfig struct {
	RedisHost          string   `yaml:"redis_host"`
	ResultCacheDB      int      `yaml:"result_cache_db"`
	RateLimitDB        int      `yaml:"rate_limit_db"`
	ResultCacheEnabled bool     `yaml:"result_cache_enabled"`
	ResultCacheTTL     Duration `yaml:"result_cache_ttl"`
}

// RateLimiterConfig holds the optional per-client limiter settings.
type RateLimiterConfig struct {
	Interval          Duration `yaml:"interval"`
	UserLimit         int      `yaml:"user_limit"`
	EnableUserLimiter bool     `yaml:"enable_user_limiter"`
}

// LimitsConfig bounds request sizes. Uploads are fully buffered in memory, so
// anything above MaxUploadBytes is rejected with 413 instead of buffered.
type LimitsConfig struct {
	MaxUploadBytes int `yaml:"max_upload_bytes"`
}

// PopplerConfig holds settings for the external Poppler toolchain.
// Path, when set (config file or POPPLER_PATH), skips filesystem probing.
type PopplerConfig struct {
	Path          string `yaml:"path"`
	BaseDir       string `yaml:"base_dir"`
	InstallScript string `yaml:"install_script"`
	RasterDPI     int    `yaml:"raster_dpi"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// Config is the process-wide configuration for the conversion service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	Limits      LimitsConfig      `yaml:"limits"`
	Poppler     PopplerConfig     `yaml:"poppler"`
}

// AppConfig is the last configuration returned by LoadConfig. Kept exported
// for tests and the few call sites that cannot take a Config parameter.
var AppConfig Config

// DefaultConfig returns the built-in configuration used when no config file
// is present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "",
			Port: ":8000",
		},
		Logger: LoggerConfig{
			File:       "logs/pdfconvert.log",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
			Level:      "info",
		},
		Cache: CacheConfig{
			RedisHost:      "localhost:6379",
			ResultCacheDB:  1,
			RateLimitDB:    2,
			ResultCacheTTL: Duration(24 * time.Hour),
		},
		RateLimiter: RateLimiterConfig{
			Interval: Duration(time.Minute),
		},
		Limits: LimitsConfig{
			MaxUploadBytes: 50 * 1024 * 1024,
		},
		Poppler: PopplerConfig{
			BaseDir:       ".",
			InstallScript: "./install_poppler.sh",
			RasterDPI:     200,
			TimeoutSecs:   60,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// (CONFIG_PATH, falling back to ./config.yaml) and environment overrides.
func LoadConfig() Config {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			Error("Invalid config file, using defaults", "path", path, "error", err)
			cfg = DefaultConfig()
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = ":" + v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}

	AppConfig = cfg
	return cfg
}

// GetConfig returns the current process configuration.
func GetConfig() Config {
	return AppConfig
}
