package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"indexdash/internal/index"
)

const (
	IntervalDaily = "1d"

	userAgent = "Mozilla/5.0 (compatible; indexdash/1.0)"
)

type RESTClient struct {
	baseURL    string
	lookback   ChartRange
	httpClient *http.Client
}

// NewRESTClient builds a chart client. An invalid lookback falls back to five days.
func NewRESTClient(baseURL string, timeout time.Duration, lookback ChartRange) *RESTClient {
	if !lookback.IsValid() {
		lookback = Range5Days
	}
	return &RESTClient{
		baseURL:    baseURL,
		lookback:   lookback,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetDailyBars fetches daily bars for symbol over the given lookback.
func (c *RESTClient) GetDailyBars(ctx context.Context, symbol string, lookback ChartRange) ([]Bar, error) {
	q := url.Values{}
	q.Set("interval", IntervalDaily)
	q.Set("range", string(lookback))
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo error: status %d: %s", resp.StatusCode, body)
	}

	return ParseChart(body)
}

// LatestQuote returns the most recent complete daily session for symbol.
func (c *RESTClient) LatestQuote(ctx context.Context, symbol string) (index.Quote, error) {
	bars, err := c.GetDailyBars(ctx, symbol, c.lookback)
	if err != nil {
		return index.Quote{}, err
	}

	last := bars[len(bars)-1]
	return index.Quote{
		Date:   index.DateOf(last.Time, last.Time.Location()),
		Open:   last.Open,
		High:   last.High,
		Low:    last.Low,
		Close:  last.Close,
		Volume: last.Volume,
	}, nil
}
