package server

import "indexdash/internal/index"

// StockResponse is one row of GET /stocks. Unknown indicators are reported as 0.
type StockResponse struct {
	ID                  uint    `json:"id"`
	Symbol              string  `json:"symbol"`
	Date                string  `json:"date"` // YYYY-MM-DD
	OpenPrice           float64 `json:"open_price"`
	HighPrice           float64 `json:"high_price"`
	LowPrice            float64 `json:"low_price"`
	ClosePrice          float64 `json:"close_price"`
	Volume              int64   `json:"volume"`
	DividendYieldSimple float64 `json:"dividend_yield_simple"`
	DividendYieldIndex  float64 `json:"dividend_yield_index"`
	PERWeighted         float64 `json:"per_weighted"`
	PERIndex            float64 `json:"per_index"`
	PBRWeighted         float64 `json:"pbr_weighted"`
	PBRIndex            float64 `json:"pbr_index"`
	MarketCap           float64 `json:"market_cap"`
	TradingValue        float64 `json:"trading_value"`
	MarketShare         float64 `json:"market_share"`
}

type StocksResponse struct {
	Stocks []StockResponse `json:"stocks"`
}

type RefreshResponse struct {
	Message  string  `json:"message"`
	NewPrice float64 `json:"new_price"`
}

type GenerateRecentResponse struct {
	Message     string  `json:"message"`
	LatestPrice float64 `json:"latest_price"`
	Inserted    int     `json:"inserted"`
	Skipped     int     `json:"skipped"`
	Purged      int64   `json:"purged"`
}

func toStockResponse(rec index.Record) StockResponse {
	out := StockResponse{
		ID:         rec.ID,
		Symbol:     rec.Symbol,
		Date:       rec.Date.Format("2006-01-02"),
		OpenPrice:  rec.Open,
		HighPrice:  rec.High,
		LowPrice:   rec.Low,
		ClosePrice: rec.Close,
		Volume:     rec.Volume,
	}
	if ind := rec.Indicators; ind != nil {
		out.DividendYieldSimple = ind.DividendYieldSimple
		out.DividendYieldIndex = ind.DividendYieldIndex
		out.PERWeighted = ind.PERWeighted
		out.PERIndex = ind.PERIndex
		out.PBRWeighted = ind.PBRWeighted
		out.PBRIndex = ind.PBRIndex
		out.MarketCap = ind.MarketCap
		out.TradingValue = ind.TradingValue
		out.MarketShare = ind.MarketShare
	}
	return out
}
