package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	LastClose float64
	Inserted  int
	Skipped   int
	Purged    int64
}

// Backfiller regenerates a fixed window of synthetic history ending yesterday.
type Backfiller struct {
	gen         *Generator
	reconciler  *Reconciler
	loc         *time.Location
	purgeBefore time.Time // zero: purge everything before the window
	now         func() time.Time
	logger      *zap.Logger
}

type BackfillerOption func(*Backfiller)

// WithPurgeCutoff fixes the purge cutoff instead of using the window start.
func WithPurgeCutoff(cutoff time.Time) BackfillerOption {
	return func(b *Backfiller) { b.purgeBefore = DateOf(cutoff, nil) }
}

// WithBackfillClock overrides time.Now.
func WithBackfillClock(now func() time.Time) BackfillerOption {
	return func(b *Backfiller) { b.now = now }
}

func NewBackfiller(gen *Generator, reconciler *Reconciler, loc *time.Location, logger *zap.Logger, opts ...BackfillerOption) *Backfiller {
	b := &Backfiller{
		gen:        gen,
		reconciler: reconciler,
		loc:        loc,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "backfill")),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Backfill purges stale rows, then walks windowDays days forward from
// basePrice (oldest first), inserting each day unless its key already exists.
// Days depend on the previous day's close and are never processed in parallel.
func (b *Backfiller) Backfill(ctx context.Context, windowDays int, basePrice float64) (BackfillResult, error) {
	if windowDays <= 0 {
		return BackfillResult{}, fmt.Errorf("backfill window must be positive, got %d", windowDays)
	}
	if basePrice <= 0 {
		return BackfillResult{}, fmt.Errorf("backfill base price must be positive, got %v", basePrice)
	}

	symbol := b.gen.Symbol()
	today := DateOf(b.now(), b.loc)
	windowStart := today.AddDate(0, 0, -windowDays)

	cutoff := windowStart
	if !b.purgeBefore.IsZero() {
		cutoff = b.purgeBefore
	}

	var res BackfillResult
	purged, err := b.reconciler.Purge(ctx, symbol, cutoff)
	if err != nil {
		return BackfillResult{}, err
	}
	res.Purged = purged

	var rec Record
	for i := windowDays; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		date := today.AddDate(0, 0, -i)
		if i == windowDays {
			rec = b.gen.Anchored(basePrice, date, BackfillProfile)
		} else {
			rec = b.gen.Synthetic(rec.Close, date, BackfillProfile)
		}

		out, err := b.reconciler.InsertIfAbsent(ctx, rec)
		if err != nil {
			return res, err
		}
		if out.Action == ActionInserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	res.LastClose = rec.Close

	b.logger.Info("backfill complete",
		zap.String("symbol", symbol),
		zap.Int("window_days", windowDays),
		zap.Time("cutoff", cutoff),
		zap.Int64("purged", res.Purged),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Float64("last_close", res.LastClose),
	)
	return res, nil
}
