package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/scmhub/calendar"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Market    MarketConfig    `mapstructure:"market"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Backfill  BackfillConfig  `mapstructure:"backfill"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	AllowedOrigin   string        `mapstructure:"allowed_origin" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format      string `mapstructure:"format" validate:"oneof=json console"`
	OutputFile  string `mapstructure:"output_file"`                           // rotated JSON log file (optional)
	Environment string `mapstructure:"environment" validate:"oneof=dev prod"` // "prod" reads DB secrets from SSM
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays  int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// MarketConfig describes the single index this service tracks.
type MarketConfig struct {
	Symbol       string  `mapstructure:"symbol" validate:"required"`
	FeedSymbol   string  `mapstructure:"feed_symbol" validate:"required"` // ticker used by the price feed, e.g. ^N225
	Timezone     string  `mapstructure:"timezone" validate:"required"`
	DefaultPrice float64 `mapstructure:"default_price" validate:"gt=0"`
	CalendarMIC  string  `mapstructure:"calendar_mic" validate:"required,exchange_mic"`
}

// Location resolves the market timezone, falling back to UTC.
func (m MarketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type FeedConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Range   string        `mapstructure:"range" validate:"oneof=1d 5d 1mo 3mo 6mo 1y"`
}

const (
	RefreshModeSynthetic = "synthetic"
	RefreshModeFeed      = "feed"
)

type RefreshConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=synthetic feed"`
}

type BackfillConfig struct {
	WindowDays  int     `mapstructure:"window_days" validate:"gt=0"`
	BasePrice   float64 `mapstructure:"base_price" validate:"gt=0"`
	PurgeBefore string  `mapstructure:"purge_before" validate:"omitempty,datetime=2006-01-02"` // empty: first day of the window
}

// PurgeCutoff parses PurgeBefore. ok is false when it is unset.
func (b BackfillConfig) PurgeCutoff() (time.Time, bool) {
	if b.PurgeBefore == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, b.PurgeBefore)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval" validate:"gt=0"`
	TradingDaysOnly bool          `mapstructure:"trading_days_only"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origin", "http://localhost:3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.sqlite_path", "nikkei.db")
	v.SetDefault("database.create_database", false)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("market.symbol", "N225")
	v.SetDefault("market.feed_symbol", "^N225")
	v.SetDefault("market.timezone", "Asia/Tokyo")
	v.SetDefault("market.default_price", 38000.0)
	v.SetDefault("market.calendar_mic", "xjpx")

	v.SetDefault("feed.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.range", "5d")

	v.SetDefault("refresh.mode", RefreshModeSynthetic)

	v.SetDefault("backfill.window_days", 30)
	v.SetDefault("backfill.base_price", 38000.0)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", 15*time.Minute)
	v.SetDefault("scheduler.trading_days_only", true)
}

// Load reads config.yaml (when present), applies environment overrides and
// validates the result. A .env file is loaded into the environment first.
func Load(paths ...string) (*Config, error) {
	// existing environment variables win over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if p := os.Getenv("CONFIG_PATH"); p != "" {
		v.AddConfigPath(p)
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")

	setDefaults(v)

	// Support environment variables with dot notation (e.g., REFRESH_MODE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags on the whole configuration tree.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("exchange_mic", knownExchange); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// knownExchange accepts MICs that have a registered trading calendar.
func knownExchange(fl validator.FieldLevel) bool {
	return calendar.GetCalendar(fl.Field().String()) != nil
}
