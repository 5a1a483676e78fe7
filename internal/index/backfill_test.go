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

// 2025-06-15 10:00 in Tokyo
var backfillNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, tokyo)

func newBackfiller(t *testing.T, store index.Store, opts ...index.BackfillerOption) *index.Backfiller {
	t.Helper()
	logger := zaptest.NewLogger(t)
	gen := index.NewGenerator(newRand(), "N225")
	rec := index.NewReconciler(store, nil, logger)
	opts = append([]index.BackfillerOption{index.WithBackfillClock(clockAt(backfillNow))}, opts...)
	return index.NewBackfiller(gen, rec, tokyo, logger, opts...)
}

// go test -v --run ^TestBackfillWindow$
func TestBackfillWindow(t *testing.T) {
	stores(t, func(t *testing.T, store index.Store) {
		ctx := context.Background()
		b := newBackfiller(t, store)

		res, err := b.Backfill(ctx, 30, 38000)
		require.NoError(t, err)
		assert.Equal(t, 30, res.Inserted)
		assert.Zero(t, res.Skipped)

		rows, err := store.Recent(ctx, "N225", 100)
		require.NoError(t, err)
		require.Len(t, rows, 30)

		today := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
		assert.True(t, rows[0].Date.Equal(today.AddDate(0, 0, -1)), "newest is yesterday, got %s", rows[0].Date)
		assert.True(t, rows[29].Date.Equal(today.AddDate(0, 0, -30)), "oldest is 30 days back, got %s", rows[29].Date)
		assert.Equal(t, 38000.0, rows[29].Close, "walk starts at the base price")
		assert.Equal(t, rows[0].Close, res.LastClose)

		for i, r := range rows {
			assert.LessOrEqual(t, r.Low, min(r.Open, r.Close), "row %d", i)
			assert.GreaterOrEqual(t, r.High, max(r.Open, r.Close), "row %d", i)
		}
		// each close is one step from the previous day
		for i := 0; i+1 < len(rows); i++ {
			prev := rows[i+1].Close
			assert.InDelta(t, prev, rows[i].Close, prev*index.BackfillProfile.MaxChange+0.01)
		}
	})
}

// go test -v --run ^TestBackfillIdempotent$
func TestBackfillIdempotent(t *testing.T) {
	stores(t, func(t *testing.T, store index.Store) {
		ctx := context.Background()

		_, err := newBackfiller(t, store).Backfill(ctx, 30, 38000)
		require.NoError(t, err)
		before, err := store.Recent(ctx, "N225", 100)
		require.NoError(t, err)

		res, err := newBackfiller(t, store).Backfill(ctx, 30, 38000)
		require.NoError(t, err)
		assert.Zero(t, res.Inserted)
		assert.Equal(t, 30, res.Skipped)
		assert.Zero(t, res.Purged)

		after, err := store.Recent(ctx, "N225", 100)
		require.NoError(t, err)
		require.Len(t, after, 30)
		for i := range before {
			assert.Equal(t, before[i].ID, after[i].ID)
			assert.Equal(t, before[i].Close, after[i].Close, "existing rows are never overwritten")
		}
	})
}

// go test -v --run ^TestBackfillPurgesBeforeWindow$
func TestBackfillPurgesBeforeWindow(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore()
	r := index.NewReconciler(store, nil, zaptest.NewLogger(t))

	old := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	_, err := r.InsertIfAbsent(ctx, index.Record{Symbol: "N225", Date: old, Close: 1})
	require.NoError(t, err)
	_, err = r.InsertIfAbsent(ctx, index.Record{Symbol: "TOPIX", Date: old, Close: 1})
	require.NoError(t, err)

	res, err := newBackfiller(t, store).Backfill(ctx, 30, 38000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Purged, "only the backfilled symbol is purged")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31), n)
}

// go test -v --run ^TestBackfillFixedPurgeCutoff$
func TestBackfillFixedPurgeCutoff(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore()
	r := index.NewReconciler(store, nil, zaptest.NewLogger(t))

	for _, d := range []int{1, 10, 20} {
		_, err := r.InsertIfAbsent(ctx, index.Record{Symbol: "N225", Date: time.Date(2025, time.April, d, 0, 0, 0, 0, time.UTC), Close: 1})
		require.NoError(t, err)
	}

	cutoff := time.Date(2025, time.April, 13, 0, 0, 0, 0, time.UTC)
	res, err := newBackfiller(t, store, index.WithPurgeCutoff(cutoff)).Backfill(ctx, 30, 38000)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Purged)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31), n, "row after the fixed cutoff survives")
}

// go test -v --run ^TestBackfillRejectsBadInput$
func TestBackfillRejectsBadInput(t *testing.T) {
	b := newBackfiller(t, memstore.NewMemoryStore())

	_, err := b.Backfill(context.Background(), 0, 38000)
	assert.Error(t, err)
	_, err = b.Backfill(context.Background(), 30, 0)
	assert.Error(t, err)
}

// go test -v --run ^TestBackfillCancelled$
func TestBackfillCancelled(t *testing.T) {
	store := memstore.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBackfiller(t, store).Backfill(ctx, 30, 38000)
	assert.ErrorIs(t, err, context.Canceled)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
