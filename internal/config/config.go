package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	PublicURL      string        `mapstructure:"public_url"`
	Game           Game          `mapstructure:"game"`
	Chat           Chat          `mapstructure:"chat"`
}

type Game struct {
	MinPlayers         int `mapstructure:"min_players"`
	RoleRevealSeconds  int `mapstructure:"role_reveal_seconds"`
	ResultsSeconds     int `mapstructure:"results_seconds"`
	DescriptionSeconds int `mapstructure:"description_seconds"`
	VotingSeconds      int `mapstructure:"voting_seconds"`
}

type Chat struct {
	Rate      float64 `mapstructure:"rate"`
	Burst     int     `mapstructure:"burst"`
	MaxLength int     `mapstructure:"max_length"`
}

const EnvPrefix = "IMPOSTER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("public_url", "http://localhost:8080")

	v.SetDefault("game.min_players", 4)
	v.SetDefault("game.role_reveal_seconds", 8)
	v.SetDefault("game.results_seconds", 15)
	v.SetDefault("game.description_seconds", 30)
	v.SetDefault("game.voting_seconds", 60)

	v.SetDefault("chat.rate", 1.0)
	v.SetDefault("chat.burst", 5)
	v.SetDefault("chat.max_length", 200)
}

// Load reads .env, then config/config.<CONFIG_ENV>.yaml, then IMPOSTER_*
// environment variables. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg(".env not loaded")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Msg("no session secret configured, generated one for this boot")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Game.MinPlayers < 3:
		return fmt.Errorf("game.min_players must be at least 3, got %d", c.Game.MinPlayers)
	case c.Game.RoleRevealSeconds <= 0 || c.Game.ResultsSeconds <= 0:
		return errors.New("game countdowns must be positive")
	case c.Chat.Rate <= 0 || c.Chat.Burst <= 0 || c.Chat.MaxLength <= 0:
		return errors.New("chat limits must be positive")
	case c.PingPeriod <= 0:
		return errors.New("ping_period must be positive")
	}
	return nil
}
