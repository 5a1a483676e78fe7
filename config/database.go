package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory" // process-local, lost on exit
)

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver         string         `mapstructure:"driver" validate:"oneof=sqlite postgres memory"`
	SQLitePath     string         `mapstructure:"sqlite_path"`
	CreateDatabase bool           `mapstructure:"create_database"` // postgres only
	ConnectRetries uint64         `mapstructure:"connect_retries"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// Parameter Store names consulted in prod instead of Host/User/Password.
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// parameterLookup is swapped in tests.
var parameterLookup = getParameterStoreValue

func (cfg *PostgresConfig) DSN(env string) string {
	return cfg.dsn(env, cfg.DBName)
}

// AdminDSN points at the maintenance "postgres" database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	return cfg.dsn(env, "postgres")
}

func (cfg *PostgresConfig) dsn(env, dbName string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = parameterLookup(cfg.HostParam, true)
		user = parameterLookup(cfg.UserParam, true)
		password = parameterLookup(cfg.PasswordParam, true)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	if parameterName == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil || result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
