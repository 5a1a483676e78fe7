package index_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"indexdash/internal/index"
)

var tokyo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}()

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// stubFeed returns a fixed quote or error and counts calls.
type stubFeed struct {
	mu      sync.Mutex
	quote   index.Quote
	err     error
	block   bool
	calls   int
	symbols []string
}

func (f *stubFeed) LatestQuote(ctx context.Context, symbol string) (index.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.symbols = append(f.symbols, symbol)
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return index.Quote{}, ctx.Err()
	}
	return f.quote, f.err
}
