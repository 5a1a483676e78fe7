package yahoo

// ChartResponse is the envelope returned by /v8/finance/chart/{symbol}.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartResult struct {
	Meta struct {
		Currency             string  `json:"currency"`
		Symbol               string  `json:"symbol"`
		ExchangeName         string  `json:"exchangeName"`
		ExchangeTimezoneName string  `json:"exchangeTimezoneName"` // e.g. "Asia/Tokyo"
		GMTOffset            int     `json:"gmtoffset"`            // seconds
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		DataGranularity      string  `json:"dataGranularity"`
		Range                string  `json:"range"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"` // seconds since epoch, one per bar
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"` // pointers: Yahoo sends null for missing bars
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}
