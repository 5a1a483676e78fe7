package stockdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"indexdash/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type StockDB struct {
	DB     *gorm.DB
	driver string
}

// NewClient opens a gorm connection for driver ("sqlite" or "postgres").
// For sqlite the dsn is a file path.
func NewClient(driver, dsn string) (*StockDB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == config.DriverSQLite {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &StockDB{DB: db, driver: driver}, nil
}

// InitializeAndMigrateStockRecord connects with retry, optionally creates the
// postgres database, and runs AutoMigrate for the stocks table.
func InitializeAndMigrateStockRecord(ctx context.Context, cfg config.DatabaseConfig, env string, logger *zap.Logger) (*StockDB, error) {
	if cfg.Driver == config.DriverPostgres && cfg.CreateDatabase {
		if err := CreateDatabase(cfg.Postgres, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	dsn := cfg.SQLitePath
	if cfg.Driver == config.DriverPostgres {
		dsn = cfg.Postgres.DSN(env)
	}

	var client *StockDB
	connect := func() error {
		c, err := NewClient(cfg.Driver, dsn)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if !c.IsHealthy(pingCtx) {
			_ = c.Close()
			return fmt.Errorf("%s not reachable", cfg.Driver)
		}
		client = c
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries),
		ctx,
	)
	err := backoff.RetryNotify(connect, policy, func(err error, wait time.Duration) {
		logger.Warn("database connect failed, retrying", zap.Error(err), zap.Duration("backoff", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		sqlDB, err := client.DB.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
	}

	if err := client.AutoMigrateStockRecord(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *StockDB) AutoMigrateStockRecord() error {
	if err := p.DB.AutoMigrate(&StockRecord{}); err != nil {
		return fmt.Errorf("auto-migrate stocks table: %w", err)
	}
	return nil
}

func (p *StockDB) Driver() string {
	return p.driver
}

func (p *StockDB) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *StockDB) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
