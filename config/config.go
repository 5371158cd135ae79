package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// MaxAttachedLimit is the most attached sounds one play may chain
	MaxAttachedLimit = 5
	// MaxDelayLimit is the largest delay a single attached sound may use
	MaxDelayLimit = 5 * time.Second
)

// Config holds all configuration for the application
type Config struct {
	// Sound library configuration
	Sounds SoundsConfig `mapstructure:"sounds"`

	// Playback configuration
	Playback PlaybackConfig `mapstructure:"playback"`

	// Monitor configuration
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// SoundsConfig holds sound library configuration
type SoundsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// PlaybackConfig holds output and chain configuration
type PlaybackConfig struct {
	SampleRate   int           `mapstructure:"sample_rate"`
	Buffer       time.Duration `mapstructure:"buffer"`
	Volume       float64       `mapstructure:"volume"` // base-2 gain exponent
	RandomPan    bool          `mapstructure:"random_pan"`
	MaxAttached  int           `mapstructure:"max_attached"`
	DefaultDelay time.Duration `mapstructure:"default_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	FFmpeg       string        `mapstructure:"ffmpeg"` // empty disables transcoding
}

// MonitorConfig holds the stats monitor configuration
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sounds.dir", "sounds")
	v.SetDefault("sounds.watch", false)
	v.SetDefault("playback.sample_rate", 44100)
	v.SetDefault("playback.buffer", "100ms")
	v.SetDefault("playback.volume", 0.0)
	v.SetDefault("playback.random_pan", false)
	v.SetDefault("playback.max_attached", MaxAttachedLimit)
	v.SetDefault("playback.default_delay", "500ms")
	v.SetDefault("playback.max_delay", MaxDelayLimit.String())
	v.SetDefault("playback.ffmpeg", "ffmpeg")
	v.SetDefault("monitor.interval", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig loads configuration from a .env file, the config file and
// environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(viper.GetViper())

	// Read config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.soundboard")
	viper.AddConfigPath("/etc/soundboard")

	// Allow environment variables
	viper.SetEnvPrefix("SOUNDBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", viper.ConfigFileUsed()))
	}

	return Decode(viper.GetViper())
}

// Decode unmarshals the configuration held by v
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Sounds.Dir) == "" {
		return &ConfigError{Field: "sounds.dir", Message: "sounds directory is required"}
	}
	if c.Playback.SampleRate < 8000 || c.Playback.SampleRate > 192000 {
		return &ConfigError{Field: "playback.sample_rate", Message: "sample rate must be between 8000 and 192000"}
	}
	if c.Playback.Buffer <= 0 {
		return &ConfigError{Field: "playback.buffer", Message: "buffer must be positive"}
	}
	if c.Playback.MaxAttached < 0 || c.Playback.MaxAttached > MaxAttachedLimit {
		return &ConfigError{Field: "playback.max_attached", Message: fmt.Sprintf("max attached must be between 0 and %d", MaxAttachedLimit)}
	}
	if c.Playback.MaxDelay < 0 || c.Playback.MaxDelay > MaxDelayLimit {
		return &ConfigError{Field: "playback.max_delay", Message: fmt.Sprintf("max delay must be between 0 and %s", MaxDelayLimit)}
	}
	if c.Playback.DefaultDelay < 0 || c.Playback.DefaultDelay > c.Playback.MaxDelay {
		return &ConfigError{Field: "playback.default_delay", Message: "default delay must be between 0 and max delay"}
	}
	if c.Monitor.Interval < 0 {
		return &ConfigError{Field: "monitor.interval", Message: "interval must not be negative"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "unknown log level " + c.Logging.Level}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "log format must be text or json"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
