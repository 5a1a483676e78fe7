package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rand is the random source used by Generator. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	Int64N(n int64) int64
}

// WalkProfile bounds one synthetic step.
type WalkProfile struct {
	MaxChange  float64 // close moves by U[-MaxChange, +MaxChange]
	OpenJitter float64 // open = close * U[1-OpenJitter, 1+OpenJitter]
	HighJitter float64 // high = max(open, close) * U[1, 1+HighJitter]
	LowJitter  float64 // low = min(open, close) * U[1-LowJitter, 1]

	VolumeMin int64
	VolumeMax int64

	TradingValueMin float64
	TradingValueMax float64
}

var (
	// BackfillProfile is used when regenerating the history window.
	BackfillProfile = WalkProfile{
		MaxChange:       0.025,
		OpenJitter:      0.005,
		HighJitter:      0.02,
		LowJitter:       0.02,
		VolumeMin:       1_000_000,
		VolumeMax:       1_800_000,
		TradingValueMin: 2.5,
		TradingValueMax: 3.5,
	}

	// RefreshProfile is used for a single-step refresh of today's record.
	RefreshProfile = WalkProfile{
		MaxChange:       0.02,
		OpenJitter:      0.005,
		HighJitter:      0.015,
		LowJitter:       0.015,
		VolumeMin:       1_000_000,
		VolumeMax:       1_500_000,
		TradingValueMin: 2.5,
		TradingValueMax: 3.0,
	}
)

// Generator produces index records, either by a synthetic random walk or
// from a live price feed. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    Rand
	symbol string

	feed        PriceFeed
	feedSymbol  string
	feedTimeout time.Duration
}

func NewGenerator(rng Rand, symbol string) *Generator {
	return &Generator{rng: rng, symbol: symbol}
}

// WithFeed attaches a price feed queried under feedSymbol with a bounded timeout.
func (g *Generator) WithFeed(feed PriceFeed, feedSymbol string, timeout time.Duration) *Generator {
	g.feed = feed
	g.feedSymbol = feedSymbol
	g.feedTimeout = timeout
	return g
}

func (g *Generator) Symbol() string {
	return g.symbol
}

// Synthetic walks one day forward from prevClose. The returned record always
// satisfies Low <= min(Open, Close) and High >= max(Open, Close).
func (g *Generator) Synthetic(prevClose float64, date time.Time, p WalkProfile) Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	rate := g.uniform(-p.MaxChange, p.MaxChange)
	return g.bar(prevClose*(1+rate), date, p)
}

// Anchored builds a synthetic record whose close is exactly closePrice
// (rounded to cents). Used for the first day of a walk.
func (g *Generator) Anchored(closePrice float64, date time.Time, p WalkProfile) Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bar(closePrice, date, p)
}

// bar derives open/high/low, volume and indicators around a close. Callers hold g.mu.
func (g *Generator) bar(closePrice float64, date time.Time, p WalkProfile) Record {
	closePrice = round2(closePrice)
	open := round2(closePrice * g.uniform(1-p.OpenJitter, 1+p.OpenJitter))
	// rounding is monotone, so the ordering survives it
	high := round2(max(open, closePrice) * g.uniform(1, 1+p.HighJitter))
	low := round2(min(open, closePrice) * g.uniform(1-p.LowJitter, 1))

	return Record{
		Symbol:     g.symbol,
		Date:       DateOf(date, nil),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		Volume:     g.volume(p),
		Indicators: g.indicators(p),
	}
}

// FromFeed builds a record for the most recent session reported by the feed. Any feed
// failure is reported as ErrDataUnavailable.
func (g *Generator) FromFeed(ctx context.Context) (Record, error) {
	if g.feed == nil {
		return Record{}, fmt.Errorf("%w: no price feed configured", ErrDataUnavailable)
	}

	if g.feedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.feedTimeout)
		defer cancel()
	}

	q, err := g.feed.LatestQuote(ctx, g.feedSymbol)
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if q.Close <= 0 || q.Date.IsZero() {
		return Record{}, fmt.Errorf("%w: incomplete quote for %s", ErrDataUnavailable, g.feedSymbol)
	}

	g.mu.Lock()
	ind := g.indicators(RefreshProfile)
	g.mu.Unlock()

	return Record{
		Symbol:     g.symbol,
		Date:       DateOf(q.Date, nil),
		Open:       q.Open,
		High:       q.High,
		Low:        q.Low,
		Close:      q.Close,
		Volume:     max(q.Volume, 0),
		Indicators: ind,
	}, nil
}

// indicators draws the nine annotations. Index-weighted figures are a fixed
// ratio jitter of their simple/weighted siblings. Callers hold g.mu.
func (g *Generator) indicators(p WalkProfile) *Indicators {
	dySimple := g.uniform(2.0, 2.5)
	perWeighted := g.uniform(15.0, 17.0)
	pbrWeighted := g.uniform(1.3, 1.6)

	return &Indicators{
		DividendYieldSimple: dySimple,
		DividendYieldIndex:  dySimple * g.uniform(0.9, 0.95),
		PERWeighted:         perWeighted,
		PERIndex:            perWeighted * g.uniform(1.1, 1.3),
		PBRWeighted:         pbrWeighted,
		PBRIndex:            pbrWeighted * g.uniform(1.2, 1.4),
		MarketCap:           g.uniform(700, 750),
		TradingValue:        g.uniform(p.TradingValueMin, p.TradingValueMax),
		MarketShare:         g.uniform(73, 75),
	}
}

func (g *Generator) volume(p WalkProfile) int64 {
	if p.VolumeMax <= p.VolumeMin {
		return max(p.VolumeMin, 0)
	}
	return p.VolumeMin + g.rng.Int64N(p.VolumeMax-p.VolumeMin+1)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
