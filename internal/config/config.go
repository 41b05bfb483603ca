package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type RateLimit struct {
	Messages int           `mapstructure:"messages"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	Secret          string        `mapstructure:"secret"`
	LogLevel        string        `mapstructure:"log_level"`
	JokeURL         string        `mapstructure:"joke_url"`
	JokeTimeout     time.Duration `mapstructure:"joke_timeout"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
	Backpressure    string        `mapstructure:"backpressure"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PongWait is how long the server waits for a pong before dropping the peer.
func (c *Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, errors.New("read_limit must be positive"))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("unknown backpressure mode %q", c.Backpressure))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("joke_url", "https://icanhazdadjoke.com")
	v.SetDefault("joke_timeout", "10s")
	v.SetDefault("rate_limit.messages", 20)
	v.SetDefault("rate_limit.interval", "10s")
	v.SetDefault("backpressure", "drop")
	v.SetDefault("shutdown_timeout", "5s")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) and applies
// CHAT_* environment overrides on top of it.
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

	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("backpressure", cfg.Backpressure).
		Msg("config ready")
	return &cfg, nil
}
