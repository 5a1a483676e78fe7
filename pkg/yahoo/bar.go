package yahoo

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata" // exchange zones on hosts without zoneinfo
)

// ErrNoData is returned when the chart response holds no usable bar.
var ErrNoData = errors.New("yahoo: no data")

// Bar is one daily session.
type Bar struct {
	Time   time.Time // bar start in the exchange timezone
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ParseChart decodes a chart payload into bars sorted oldest first.
// Bars with any null OHLCV field or a non-positive close are skipped.
func ParseChart(data []byte) ([]Bar, error) {
	var resp ChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}

	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n ||
		len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("%w: mismatched array lengths", ErrNoData)
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)

	bars := make([]Bar, 0, n)
	for i, ts := range result.Timestamp {
		o, h, l, c, v := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i], quote.Volume[i]
		if o == nil || h == nil || l == nil || c == nil || v == nil {
			continue // skip incomplete row
		}
		if *c <= 0 || *v < 0 {
			continue
		}

		bars = append(bars, Bar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: int64(*v),
		})
	}

	if len(bars) == 0 {
		return nil, ErrNoData
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}
