package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode      string          `mapstructure:"mode"`
	Port      int             `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type SessionConfig struct {
	MailboxSize     int           `mapstructure:"mailbox_size"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	DefaultScenario string        `mapstructure:"default_scenario"`
	ObserverBuffer  int           `mapstructure:"observer_buffer"`
}

type SignalConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

type AuthConfig struct {
	// Secret signs HS256 bearer tokens. Auth is off when empty.
	Secret       string `mapstructure:"secret"`
	CookieSecret string `mapstructure:"cookie_secret"`
}

type RateLimitConfig struct {
	Triggers int           `mapstructure:"triggers"`
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 1)
	v.SetDefault("session.mailbox_size", 256)
	v.SetDefault("session.max_duration", "0s")
	v.SetDefault("session.default_scenario", "forward-user")
	v.SetDefault("session.observer_buffer", 64)
	v.SetDefault("signal.read_limit", 32768)
	v.SetDefault("signal.ping_period", "54s")
	v.SetDefault("signal.send_buffer", 64)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.cookie_secret", "voxengine")
	v.SetDefault("ratelimit.triggers", 10)
	v.SetDefault("ratelimit.interval", "1m")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Every key can
// be overridden from the environment with the VOX_ prefix, e.g.
// VOX_SESSION_MAILBOX_SIZE.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("VOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("scenario", cfg.Session.DefaultScenario).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != "release" && c.Mode != "debug" {
		return fmt.Errorf("config: mode must be release or debug, got %q", c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Session.MailboxSize <= 0 {
		return fmt.Errorf("config: session.mailbox_size must be positive")
	}
	if c.RateLimit.Triggers <= 0 || c.RateLimit.Interval <= 0 {
		return fmt.Errorf("config: ratelimit needs positive triggers and interval")
	}
	return nil
}
