// Package config loads bosswatch settings from a YAML file, overridden by
// BOSSWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Timezone string         `mapstructure:"timezone"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Offsets  OffsetsConfig  `mapstructure:"offsets"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Web      WebConfig      `mapstructure:"web"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScheduleConfig struct {
	File string `mapstructure:"file"`
}

type OffsetsConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Retries         int           `mapstructure:"retries"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type WorkerConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	RenderInterval time.Duration `mapstructure:"render_interval"`
}

type StorageConfig struct {
	Backend      string        `mapstructure:"backend"`
	Dir          string        `mapstructure:"dir"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	SaveDebounce time.Duration `mapstructure:"save_debounce"`
}

type PushoverConfig struct {
	Token string `mapstructure:"token"`
	User  string `mapstructure:"user"`
}

type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type TelegramConfig struct {
	Token   string  `mapstructure:"token"`
	ChatIDs []int64 `mapstructure:"chat_ids"`
}

type WebConfig struct {
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateLimit   int      `mapstructure:"rate_limit"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("timezone", "America/Sao_Paulo")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("schedule.file", "")
	v.SetDefault("offsets.endpoint", "")
	v.SetDefault("offsets.timeout", 10*time.Second)
	v.SetDefault("offsets.retries", 2)
	v.SetDefault("offsets.refresh_interval", 5*time.Minute)
	v.SetDefault("worker.tick_interval", time.Second)
	v.SetDefault("worker.render_interval", time.Minute)
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.sqlite_path", "data/bosswatch.db")
	v.SetDefault("storage.save_debounce", time.Second)
	v.SetDefault("pushover.token", "")
	v.SetDefault("pushover.user", "")
	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "bosswatch.notifications")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_ids", []int64{})
	v.SetDefault("web.cors_origins", []string{"*"})
	v.SetDefault("web.rate_limit", 120)
}

// LoadConfig reads path if it exists. A missing file is not an error; defaults
// and the environment still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOSSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Worker.TickInterval <= 0 {
		return errors.New("worker.tick_interval must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
