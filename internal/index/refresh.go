package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RefreshMode selects where a single-step refresh gets its prices.
type RefreshMode string

const (
	ModeSynthetic RefreshMode = "synthetic"
	ModeFeed      RefreshMode = "feed"
)

// Refresher writes one new record for the index: today's synthetic step
// from the latest stored close, or the latest session from the price feed.
type Refresher struct {
	mode         RefreshMode
	gen          *Generator
	reconciler   *Reconciler
	store        Store
	defaultPrice float64
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

type RefresherOption func(*Refresher)

// WithRefreshClock overrides time.Now.
func WithRefreshClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

func NewRefresher(mode RefreshMode, gen *Generator, reconciler *Reconciler, store Store,
	defaultPrice float64, loc *time.Location, logger *zap.Logger, opts ...RefresherOption) (*Refresher, error) {
	switch mode {
	case ModeSynthetic, ModeFeed:
	default:
		return nil, fmt.Errorf("unknown refresh mode %q", mode)
	}

	r := &Refresher{
		mode:         mode,
		gen:          gen,
		reconciler:   reconciler,
		store:        store,
		defaultPrice: defaultPrice,
		loc:          loc,
		now:          time.Now,
		logger:       logger.With(zap.String("component", "refresh"), zap.String("mode", string(mode))),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Refresher) Mode() RefreshMode {
	return r.mode
}

// Refresh generates and upserts one record and returns its close. Failures
// are returned as-is and never retried; nothing is written on failure.
func (r *Refresher) Refresh(ctx context.Context) (float64, error) {
	var (
		rec Record
		err error
	)

	switch r.mode {
	case ModeFeed:
		rec, err = r.gen.FromFeed(ctx)
		if err != nil {
			r.logger.Warn("feed refresh failed", zap.Error(err))
			return 0, err
		}
	default:
		rec, err = r.syntheticStep(ctx)
		if err != nil {
			return 0, err
		}
	}

	out, err := r.reconciler.Upsert(ctx, rec)
	if err != nil {
		r.logger.Error("refresh write failed", zap.Error(err))
		return 0, err
	}

	r.logger.Info("index refreshed",
		zap.String("symbol", rec.Symbol),
		zap.String("date", rec.Date.Format("2006-01-02")),
		zap.Float64("close", rec.Close),
		zap.String("action", string(out.Action)),
		zap.Uint("id", out.ID),
	)
	return rec.Close, nil
}

func (r *Refresher) syntheticStep(ctx context.Context) (Record, error) {
	symbol := r.gen.Symbol()

	prev, ok, err := r.store.LatestClose(ctx, symbol)
	if err != nil {
		r.logger.Error("latest close lookup failed", zap.Error(err))
		return Record{}, fmt.Errorf("latest close for %s: %w", symbol, err)
	}
	if !ok || prev <= 0 {
		prev = r.defaultPrice
	}

	today := DateOf(r.now(), r.loc)
	return r.gen.Synthetic(prev, today, RefreshProfile), nil
}
