package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"indexdash/internal/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two complete sessions around a holiday with a null row between them
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"currency": "JPY", "symbol": "^N225", "exchangeTimezoneName": "Asia/Tokyo", "gmtoffset": 32400},
      "timestamp": [1704841200, 1704927600, 1705014000],
      "indicators": {"quote": [{
        "open":   [33400.12, null, 34600.5],
        "high":   [33990.3,  null, 35100.0],
        "low":    [33300.0,  null, 34500.25],
        "close":  [33763.18, null, 35049.86],
        "volume": [138000000, null, 151200000]
      }]}
    }],
    "error": null
  }
}`

func newChartServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^N225", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// go test -v --run ^TestParseChart$
func TestParseChart(t *testing.T) {
	bars, err := ParseChart([]byte(chartFixture))
	require.NoError(t, err)
	require.Len(t, bars, 2, "null row skipped")

	assert.Equal(t, 33763.18, bars[0].Close)
	assert.Equal(t, int64(151200000), bars[1].Volume)
	assert.Equal(t, "Asia/Tokyo", bars[1].Time.Location().String())
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

// go test -v --run ^TestParseChartNoData$
func TestParseChartNoData(t *testing.T) {
	cases := map[string]string{
		"empty result":  `{"chart":{"result":[],"error":null}}`,
		"all null":      `{"chart":{"result":[{"meta":{},"timestamp":[1],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null],"volume":[null]}]}}]}}`,
		"length skew":   `{"chart":{"result":[{"meta":{},"timestamp":[1,2],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1],"volume":[1]}]}}]}}`,
		"no timestamps": `{"chart":{"result":[{"meta":{},"indicators":{"quote":[]}}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseChart([]byte(body))
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

// go test -v --run ^TestParseChartAPIError$
func TestParseChartAPIError(t *testing.T) {
	_, err := ParseChart([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

// go test -v --run ^TestLatestQuote$
func TestLatestQuote(t *testing.T) {
	srv := newChartServer(t, http.StatusOK, chartFixture)
	client := NewRESTClient(srv.URL, 5*time.Second, Range5Days)

	q, err := client.LatestQuote(context.Background(), "^N225")
	require.NoError(t, err)

	assert.Equal(t, 35049.86, q.Close)
	assert.Equal(t, 34600.5, q.Open)
	// 1705014000 is 2024-01-12 08:00 JST
	assert.True(t, q.Date.Equal(time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC)), "got %s", q.Date)
}

// go test -v --run ^TestLatestQuoteHTTPError$
func TestLatestQuoteHTTPError(t *testing.T) {
	srv := newChartServer(t, http.StatusTooManyRequests, "Too Many Requests")
	client := NewRESTClient(srv.URL, 5*time.Second, Range5Days)

	_, err := client.LatestQuote(context.Background(), "^N225")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

// go test -v --run ^TestLatestQuoteTimeout$
func TestLatestQuoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 50*time.Millisecond, Range5Days)
	_, err := client.LatestQuote(context.Background(), "^N225")
	assert.Error(t, err)
}

// go test -v --run ^TestFeedThroughGenerator$
func TestFeedThroughGenerator(t *testing.T) {
	srv := newChartServer(t, http.StatusOK, `{"chart":{"result":[],"error":null}}`)
	client := NewRESTClient(srv.URL, 5*time.Second, Range5Days)

	gen := index.NewGenerator(fixedRand{}, "N225").WithFeed(client, "^N225", time.Second)
	_, err := gen.FromFeed(context.Background())
	assert.True(t, errors.Is(err, index.ErrDataUnavailable))
	assert.True(t, errors.Is(err, ErrNoData))
}

// go test -v --run ^TestParseChartRange$
func TestParseChartRange(t *testing.T) {
	r, err := ParseChartRange("1mo")
	require.NoError(t, err)
	assert.Equal(t, 21, r.Sessions())

	_, err = ParseChartRange("2w")
	assert.Error(t, err)

	assert.Equal(t, Range5Days, NewRESTClient("http://x", time.Second, "bogus").lookback)
}

// go test -v --run ^TestLiveLatestQuote$
func TestLiveLatestQuote(t *testing.T) {
	if os.Getenv("INDEXDASH_TEST_LIVE_FEED") == "" {
		t.Skip("INDEXDASH_TEST_LIVE_FEED not set")
	}

	// Create the REST client with real base URL
	client := NewRESTClient("https://query1.finance.yahoo.com", 10*time.Second, Range5Days)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q, err := client.LatestQuote(ctx, "^N225")
	require.NoError(t, err)
	assert.Positive(t, q.Close)
	t.Logf("latest ^N225 session %s close %.2f", q.Date.Format("2006-01-02"), q.Close)
}

type fixedRand struct{}

func (fixedRand) Float64() float64     { return 0.5 }
func (fixedRand) Int64N(n int64) int64 { return n / 2 }
