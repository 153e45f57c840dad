package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Provider    ProviderConfig  `mapstructure:"provider"`
	Gateway     GatewayConfig   `mapstructure:"gateway"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Picks       PicksConfig     `mapstructure:"picks"`
	Notifier    NotifierConfig  `mapstructure:"notifier"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type CacheConfig struct {
	Capacity      int           `mapstructure:"capacity"`
	ReuseBonus    time.Duration `mapstructure:"reuse_bonus"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// EndpointBudget is the sliding-window request quota for one upstream
// endpoint.
type EndpointBudget struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type SchedulerConfig struct {
	DispatchSpacing time.Duration             `mapstructure:"dispatch_spacing"`
	RateLimitGrace  time.Duration             `mapstructure:"rate_limit_grace"`
	DefaultBudget   EndpointBudget            `mapstructure:"default_budget"`
	Endpoints       map[string]EndpointBudget `mapstructure:"endpoints"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GatewayConfig struct {
	OddsTTL      time.Duration `mapstructure:"odds_ttl"`
	MovementTTL  time.Duration `mapstructure:"movement_ttl"`
	ForecastTTL  time.Duration `mapstructure:"forecast_ttl"`
	PropBatch    int           `mapstructure:"prop_batch"`
	Sports       []string      `mapstructure:"sports"`
	Markets      []string      `mapstructure:"markets"`
	Bookmakers   []string      `mapstructure:"bookmakers"`
	FetchRetries int           `mapstructure:"fetch_retries"`
}

type EngineConfig struct {
	Bankroll         float64 `mapstructure:"bankroll"`
	MaxKellyFraction float64 `mapstructure:"max_kelly_fraction"`
}

type PicksConfig struct {
	MinEdgePercent float64       `mapstructure:"min_edge_percent"`
	BestBetsCap    int           `mapstructure:"best_bets_cap"`
	LongShotsCap   int           `mapstructure:"long_shots_cap"`
	PropsCap       int           `mapstructure:"props_cap"`
	GameLinesCap   int           `mapstructure:"game_lines_cap"`
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
}

type NotifierConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("provider.api_key", "ODDS_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ODDS_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("notifier.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Cache.Capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", config.Cache.Capacity)
	}
	if config.Engine.MaxKellyFraction <= 0 || config.Engine.MaxKellyFraction > 1 {
		return nil, fmt.Errorf("max kelly fraction must be in (0, 1], got %.2f", config.Engine.MaxKellyFraction)
	}
	if config.Gateway.PropBatch <= 0 {
		return nil, fmt.Errorf("prop batch size must be positive, got %d", config.Gateway.PropBatch)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("cache.capacity", 2000)
	viper.SetDefault("cache.reuse_bonus", "30s")
	viper.SetDefault("cache.sweep_interval", "60s")

	viper.SetDefault("scheduler.dispatch_spacing", "100ms")
	viper.SetDefault("scheduler.rate_limit_grace", "50ms")
	viper.SetDefault("scheduler.default_budget.max_requests", 8)
	viper.SetDefault("scheduler.default_budget.window", "1m")

	viper.SetDefault("provider.base_url", "https://api.the-odds-api.com/v4")
	viper.SetDefault("provider.timeout", "15s")

	viper.SetDefault("gateway.odds_ttl", "5m")
	viper.SetDefault("gateway.movement_ttl", "1m")
	viper.SetDefault("gateway.forecast_ttl", "3h")
	viper.SetDefault("gateway.prop_batch", 5)
	viper.SetDefault("gateway.sports", []string{"basketball_nba"})
	viper.SetDefault("gateway.markets", []string{"spreads", "totals"})
	viper.SetDefault("gateway.bookmakers", []string{"draftkings", "fanduel"})
	viper.SetDefault("gateway.fetch_retries", 2)

	viper.SetDefault("engine.bankroll", 1000.0)
	viper.SetDefault("engine.max_kelly_fraction", 0.25)

	viper.SetDefault("picks.min_edge_percent", 2.0)
	viper.SetDefault("picks.best_bets_cap", 6)
	viper.SetDefault("picks.long_shots_cap", 5)
	viper.SetDefault("picks.props_cap", 12)
	viper.SetDefault("picks.game_lines_cap", 12)
	viper.SetDefault("picks.snapshot_ttl", "5m")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "60s")
}
