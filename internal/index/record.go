package index

import (
	"errors"
	"time"
)

var (
	// ErrDataUnavailable means the price feed returned nothing usable:
	// empty or partial data, a timeout, or a network failure.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrRecordNotFound is returned by Tx.FindByKey on a miss.
	ErrRecordNotFound = errors.New("index record not found")

	// ErrDuplicateKey is returned by Tx.Insert when (symbol, date) already exists.
	ErrDuplicateKey = errors.New("duplicate index record")
)

// Record is one daily row for an index, keyed by (Symbol, Date).
type Record struct {
	ID     uint
	Symbol string
	Date   time.Time // 00:00 UTC of the session date

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	Indicators *Indicators // nil when unknown

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Indicators are market annotations that travel with a record. Some are
// placeholders drawn at random; they carry no cross-field guarantees.
type Indicators struct {
	DividendYieldSimple float64
	DividendYieldIndex  float64
	PERWeighted         float64
	PERIndex            float64
	PBRWeighted         float64
	PBRIndex            float64
	MarketCap           float64 // trillion yen
	TradingValue        float64 // trillion yen
	MarketShare         float64 // percent
}

// Quote is one trading session as reported by a price feed.
type Quote struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
)

// WriteOutcome reports which branch a write took and the row it touched.
type WriteOutcome struct {
	Action Action
	ID     uint
}

// DateOf returns the calendar date of t in loc as 00:00 UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
