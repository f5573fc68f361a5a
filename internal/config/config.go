package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the planner and bot configuration.
type Config struct {
	Planner  PlannerConfig  `mapstructure:"planner"`
	Scramble ScrambleConfig `mapstructure:"scramble"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Model    ModelConfig    `mapstructure:"model"`
}

// Thresholds are the win percentages an attack must reach.
type Thresholds struct {
	Win    float64 `mapstructure:"win"`
	MinWin float64 `mapstructure:"min_win"`
}

// PlannerConfig tunes a planning pass.
type PlannerConfig struct {
	Dice            Thresholds    `mapstructure:"dice"`
	LowLuck         Thresholds    `mapstructure:"low_luck"`
	Workers         int           `mapstructure:"workers"`
	MaxTargets      int           `mapstructure:"max_targets"` // 0 means no cap
	OracleTimeout   time.Duration `mapstructure:"oracle_timeout"`
	EnemyBonusRange int           `mapstructure:"enemy_bonus_range"`
	Seed            uint64        `mapstructure:"seed"` // 0 keeps the oracle unseeded
}

// ThresholdsFor returns the thresholds for the game's luck setting.
func (p PlannerConfig) ThresholdsFor(lowLuck bool) Thresholds {
	if lowLuck {
		return p.LowLuck
	}
	return p.Dice
}

// ScrambleConfig mirrors the game's scramble options.
type ScrambleConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	FromIslandOnly bool `mapstructure:"from_island_only"`
	ToSeaOnly      bool `mapstructure:"to_sea_only"`
}

// ServerConfig points the bot at a remote game.
type ServerConfig struct {
	URL    string `mapstructure:"url"`
	GameID string `mapstructure:"game_id"`
	Player string `mapstructure:"player"`
}

// AuthConfig holds the credentials used against the game server. When a
// token URL is set, OAuth2 client credentials are used instead of a signed
// service token.
type AuthConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	UserID       string   `mapstructure:"user_id"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// StorageConfig locates the plan journal and the odds cache. Empty URLs
// disable them.
type StorageConfig struct {
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	OddsTTL     time.Duration `mapstructure:"odds_ttl"`
}

// ModelConfig locates the optional ONNX strength model.
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("planner.dice.win", 90)
	v.SetDefault("planner.dice.min_win", 65)
	v.SetDefault("planner.low_luck.win", 95)
	v.SetDefault("planner.low_luck.min_win", 75)
	v.SetDefault("planner.workers", 4)
	v.SetDefault("planner.max_targets", 0)
	v.SetDefault("planner.oracle_timeout", 2*time.Second)
	v.SetDefault("planner.enemy_bonus_range", 1)
	v.SetDefault("planner.seed", 0)

	v.SetDefault("scramble.enabled", false)
	v.SetDefault("scramble.from_island_only", false)
	v.SetDefault("scramble.to_sea_only", false)

	v.SetDefault("server.url", envOrDefault("SERVER_URL", "http://localhost:8009"))
	v.SetDefault("server.game_id", "")
	v.SetDefault("server.player", "")

	v.SetDefault("auth.jwt_secret", envOrDefault("JWT_SECRET", "dev-secret-change-me"))
	v.SetDefault("auth.user_id", "proai-bot")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.scopes", []string{})

	v.SetDefault("storage.database_url", envOrDefault("DATABASE_URL", ""))
	v.SetDefault("storage.redis_url", envOrDefault("REDIS_URL", ""))
	v.SetDefault("storage.odds_ttl", 24*time.Hour)

	v.SetDefault("model.path", "")
}

// Loader reads configuration from defaults, an optional YAML file and
// PROAI_* environment variables, and can reload it when the file changes.
type Loader struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg *Config
}

// NewLoader reads configuration. An empty path looks for planner.yaml in the
// working directory and ./config; a missing file falls back to defaults.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("planner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PROAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, cfg: cfg}, nil
}

// Load is a convenience for NewLoader(path).Config().
func Load(path string) (*Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Config(), nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Config returns a copy of the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := *l.cfg
	cp.Auth.Scopes = append([]string(nil), l.cfg.Auth.Scopes...)
	return &cp
}

// FilePath returns the config file in use, or "".
func (l *Loader) FilePath() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the file changes. An invalid
// edit is logged and the previous configuration is kept.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(l.v)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		log.Info().Str("file", e.Name).Msg("Config reloaded")
		if onChange != nil {
			onChange(l.Config())
		}
	})
	l.v.WatchConfig()
}

// Validate checks the configuration values.
func Validate(c *Config) error {
	for name, th := range map[string]Thresholds{"planner.dice": c.Planner.Dice, "planner.low_luck": c.Planner.LowLuck} {
		if th.MinWin < 0 || th.Win > 100 || th.MinWin > th.Win {
			return fmt.Errorf("%s thresholds must satisfy 0 <= min_win <= win <= 100, got %v/%v", name, th.MinWin, th.Win)
		}
	}
	if c.Planner.Workers < 1 {
		return fmt.Errorf("planner.workers must be at least 1")
	}
	if c.Planner.MaxTargets < 0 {
		return fmt.Errorf("planner.max_targets must be non-negative")
	}
	if c.Planner.OracleTimeout < 0 {
		return fmt.Errorf("planner.oracle_timeout must be non-negative")
	}
	if c.Planner.EnemyBonusRange < 0 {
		return fmt.Errorf("planner.enemy_bonus_range must be non-negative")
	}
	if c.Storage.OddsTTL < 0 {
		return fmt.Errorf("storage.odds_ttl must be non-negative")
	}
	if c.Auth.TokenURL != "" && c.Auth.ClientID == "" {
		return fmt.Errorf("auth.client_id is required with auth.token_url")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
