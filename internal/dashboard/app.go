package dashboard

import (
	"context"
	"fmt"
	"math/rand/v2"

	"indexdash/config"
	"indexdash/internal/index"
	"indexdash/internal/server"
	"indexdash/pkg/storage/memstore"
	"indexdash/pkg/storage/stockdb"
	"indexdash/pkg/yahoo"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App owns every long-lived component of the dashboard backend.
type App struct {
	Router     *gin.Engine
	Refresher  *index.Refresher
	Backfiller *index.Backfiller
	Scheduler  *index.Scheduler // nil when scheduled refresh is disabled

	closer func() error
}

// New connects the store, seeds an empty table and builds the HTTP router.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, health, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, store, health, logger)
	if err != nil {
		_ = closer()
		return nil, err
	}
	app.closer = closer
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, store index.Store, health server.HealthChecker, logger *zap.Logger) (*App, error) {
	if _, err := index.Seed(ctx, store, index.SampleRecords(cfg.Market.Symbol), logger); err != nil {
		return nil, err
	}

	loc := cfg.Market.Location()
	gen := index.NewGenerator(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), cfg.Market.Symbol)

	mode := index.RefreshMode(cfg.Refresh.Mode)
	if mode == index.ModeFeed {
		lookback, err := yahoo.ParseChartRange(cfg.Feed.Range)
		if err != nil {
			return nil, err
		}
		client := yahoo.NewRESTClient(cfg.Feed.BaseURL, cfg.Feed.Timeout, lookback)
		gen = gen.WithFeed(client, cfg.Market.FeedSymbol, cfg.Feed.Timeout)
	}

	reconciler := index.NewReconciler(store, index.NewSymbolLocks(), logger)

	var backfillOpts []index.BackfillerOption
	if cutoff, ok := cfg.Backfill.PurgeCutoff(); ok {
		backfillOpts = append(backfillOpts, index.WithPurgeCutoff(cutoff))
	}
	backfiller := index.NewBackfiller(gen, reconciler, loc, logger, backfillOpts...)

	refresher, err := index.NewRefresher(mode, gen, reconciler, store, cfg.Market.DefaultPrice, loc, logger)
	if err != nil {
		return nil, err
	}

	handler := server.NewHandler(cfg.Market.Symbol, store, refresher, backfiller,
		server.BackfillParams{WindowDays: cfg.Backfill.WindowDays, BasePrice: cfg.Backfill.BasePrice},
		health, logger)

	app := &App{
		Router:     server.NewRouter(handler, cfg.Server.AllowedOrigin, logger),
		Refresher:  refresher,
		Backfiller: backfiller,
		closer:     func() error { return nil },
	}

	if cfg.Scheduler.Enabled {
		var cal index.TradingCalendar
		if cfg.Scheduler.TradingDaysOnly {
			c, ok := index.ExchangeCalendar(cfg.Market.CalendarMIC)
			if !ok {
				return nil, fmt.Errorf("unknown exchange calendar %q", cfg.Market.CalendarMIC)
			}
			cal = c
		}
		app.Scheduler = index.NewScheduler(refresher, cfg.Scheduler.Interval, cal, logger, index.WithMarketLocation(loc))
	}

	logger.Info("dashboard ready",
		zap.String("symbol", cfg.Market.Symbol),
		zap.String("refresh_mode", string(mode)),
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("scheduler", app.Scheduler != nil),
	)
	return app, nil
}

// openStore returns the configured Store with its health probe and close func.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (index.Store, server.HealthChecker, func() error, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		m := memstore.NewMemoryStore()
		return m, m, func() error { return nil }, nil
	}

	db, err := stockdb.InitializeAndMigrateStockRecord(ctx, cfg.Database, cfg.Log.Environment, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	return db, db, db.Close, nil
}

// Start launches the scheduled refresh loop, if enabled.
func (a *App) Start(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

// Close stops the scheduler and releases the store.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	return a.closer()
}
