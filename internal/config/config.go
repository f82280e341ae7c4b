package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Download DownloadConfig `koanf:"download"`
	Store    StoreConfig    `koanf:"store"`
	Engine   EngineConfig   `koanf:"engine"`
	Stream   StreamConfig   `koanf:"stream"`
	Cleanup  CleanupConfig  `koanf:"cleanup"`
	Limits   LimitsConfig   `koanf:"limits"`
	Retry    RetryConfig    `koanf:"retry"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DownloadConfig struct {
	Dir           string  `koanf:"dir"`
	MaxSizeGB     float64 `koanf:"max_size_gb"`
	VideoQuality  string  `koanf:"video_quality"`
	AudioQuality  string  `koanf:"audio_quality"`
	MaxConcurrent int     `koanf:"max_concurrent"`
	MaxQueue      int     `koanf:"max_queue"`
}

type StoreConfig struct {
	Path   string `koanf:"path"`
	JobTTL string `koanf:"job_ttl"`
}

type EngineConfig struct {
	Binary string `koanf:"binary"`
}

type StreamConfig struct {
	PollInterval string `koanf:"poll_interval"`
	StuckTimeout string `koanf:"stuck_timeout"`
	MaxDuration  string `koanf:"max_duration"`
}

type CleanupConfig struct {
	Age           string  `koanf:"age"`
	Interval      string  `koanf:"interval"`
	MinDiskFreeGB float64 `koanf:"min_disk_free_gb"`
}

type LimitsConfig struct {
	VideoPerMinute   int `koanf:"video_per_minute"`
	AudioPerMinute   int `koanf:"audio_per_minute"`
	DefaultPerMinute int `koanf:"default_per_minute"`
}

type RetryConfig struct {
	Max int `koanf:"max"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads config from TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	// 2. Load TOML config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load env vars: MD_SERVER_PORT -> server.port
	// Only set env vars that have non-empty values to avoid overriding TOML config.
	if err := k.Load(env.ProviderWithValue("MD_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "MD_")),
			"_", ".", -1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// JobTTL returns the parsed record TTL, falling back to 24h.
func (c *Config) JobTTL() time.Duration {
	return parseDuration(c.Store.JobTTL, 24*time.Hour)
}

func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Stream.PollInterval, 300*time.Millisecond)
}

func (c *Config) StuckTimeout() time.Duration {
	return parseDuration(c.Stream.StuckTimeout, 45*time.Second)
}

func (c *Config) StreamMaxDuration() time.Duration {
	return parseDuration(c.Stream.MaxDuration, 10*time.Minute)
}

func (c *Config) CleanupAge() time.Duration {
	return parseDuration(c.Cleanup.Age, 7*24*time.Hour)
}

func (c *Config) CleanupInterval() time.Duration {
	return parseDuration(c.Cleanup.Interval, time.Hour)
}

func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.Download.MaxSizeGB * float64(1<<30))
}

func (c *Config) MinDiskFreeBytes() int64 {
	return int64(c.Cleanup.MinDiskFreeGB * float64(1<<30))
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
