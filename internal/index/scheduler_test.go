package index_test

import (
	"context"
	"testing"
	"time"

	"indexdash/internal/index"
	"indexdash/pkg/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedCalendar bool

func (c fixedCalendar) IsBusinessDay(time.Time) bool { return bool(c) }

// go test -v --run ^TestSchedulerRefreshes$
func TestSchedulerRefreshes(t *testing.T) {
	store := memstore.NewMemoryStore()
	r := newRefresher(t, store, index.ModeSynthetic, nil)

	s := index.NewScheduler(r, 10*time.Millisecond, fixedCalendar(true), zaptest.NewLogger(t))
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		n, err := store.Count(context.Background())
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}

// go test -v --run ^TestSchedulerSkipsClosedMarket$
func TestSchedulerSkipsClosedMarket(t *testing.T) {
	store := memstore.NewMemoryStore()
	r := newRefresher(t, store, index.ModeSynthetic, nil)

	s := index.NewScheduler(r, 5*time.Millisecond, fixedCalendar(false), zaptest.NewLogger(t))
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// go test -v --run ^TestSchedulerStopsWithContext$
func TestSchedulerStopsWithContext(t *testing.T) {
	r := newRefresher(t, memstore.NewMemoryStore(), index.ModeSynthetic, nil)
	s := index.NewScheduler(r, time.Hour, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// go test -v --run ^TestExchangeCalendar$
func TestExchangeCalendar(t *testing.T) {
	cal, ok := index.ExchangeCalendar("xjpx")
	require.True(t, ok)

	assert.False(t, cal.IsBusinessDay(time.Date(2024, time.January, 6, 12, 0, 0, 0, tokyo)), "saturday")
	assert.True(t, cal.IsBusinessDay(time.Date(2024, time.January, 10, 12, 0, 0, 0, tokyo)), "wednesday")
}
