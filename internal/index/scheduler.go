package index

import (
	"context"
	"sync"
	"time"

	"github.com/scmhub/calendar"
	"go.uber.org/zap"
)

// TradingCalendar answers whether a market trades on a given day.
type TradingCalendar interface {
	IsBusinessDay(t time.Time) bool
}

// ExchangeCalendar loads the calendar for an ISO 10383 MIC (e.g. "xjpx").
// ok is false when the MIC is unknown.
func ExchangeCalendar(mic string) (TradingCalendar, bool) {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return nil, false
	}
	return cal, true
}

// Scheduler runs a refresh on a fixed interval until its context is cancelled.
type Scheduler struct {
	refresh  func(ctx context.Context) (float64, error)
	interval time.Duration
	calendar TradingCalendar // nil: run every day
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type SchedulerOption func(*Scheduler)

// WithMarketLocation evaluates the trading calendar in loc instead of local time.
func WithMarketLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) { s.loc = loc }
}

func NewScheduler(refresher *Refresher, interval time.Duration, cal TradingCalendar, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		refresh:  refresher.Refresh,
		interval: interval,
		calendar: cal,
		loc:      time.Local,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TradingDaysOnly reports whether ticks on closed market days are skipped.
func (s *Scheduler) TradingDaysOnly() bool {
	return s.calendar != nil
}

// Start launches the loop. The first refresh fires after one interval.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduled refresh started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduled refresh stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight refresh to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.calendar != nil && !s.calendar.IsBusinessDay(s.now().In(s.loc)) {
		s.logger.Debug("market closed today, skipping refresh")
		return
	}

	price, err := s.refresh(ctx)
	if err != nil {
		s.logger.Warn("scheduled refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled refresh done", zap.Float64("new_price", price))
}
