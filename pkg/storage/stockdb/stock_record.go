package stockdb

import (
	"time"

	"indexdash/internal/index"
)

// StockRecord is one daily index row in the "stocks" table.
type StockRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol string    `gorm:"type:varchar(16);not null;index:idx_stocks_symbol_date,unique"`
	Date   time.Time `gorm:"type:date;not null;index:idx_stocks_symbol_date,unique"`

	OpenPrice  float64 `gorm:"column:open_price;type:double precision;not null"`
	HighPrice  float64 `gorm:"column:high_price;type:double precision;not null"`
	LowPrice   float64 `gorm:"column:low_price;type:double precision;not null"`
	ClosePrice float64 `gorm:"column:close_price;type:double precision;not null"`
	Volume     int64   `gorm:"column:volume;not null"`

	// nullable: seed rows carry no indicators
	DividendYieldSimple *float64 `gorm:"column:dividend_yield_simple;type:double precision"`
	DividendYieldIndex  *float64 `gorm:"column:dividend_yield_index;type:double precision"`
	PERWeighted         *float64 `gorm:"column:per_weighted;type:double precision"`
	PERIndex            *float64 `gorm:"column:per_index;type:double precision"`
	PBRWeighted         *float64 `gorm:"column:pbr_weighted;type:double precision"`
	PBRIndex            *float64 `gorm:"column:pbr_index;type:double precision"`
	MarketCap           *float64 `gorm:"column:market_cap;type:double precision"`
	TradingValue        *float64 `gorm:"column:trading_value;type:double precision"`
	MarketShare         *float64 `gorm:"column:market_share;type:double precision"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (StockRecord) TableName() string {
	return "stocks"
}

// ToStockRecord converts a domain record into a row for insertion.
func ToStockRecord(rec index.Record) StockRecord {
	row := StockRecord{
		ID:         rec.ID,
		Symbol:     rec.Symbol,
		Date:       index.DateOf(rec.Date, nil),
		OpenPrice:  rec.Open,
		HighPrice:  rec.High,
		LowPrice:   rec.Low,
		ClosePrice: rec.Close,
		Volume:     rec.Volume,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}

	if ind := rec.Indicators; ind != nil {
		row.DividendYieldSimple = ptr(ind.DividendYieldSimple)
		row.DividendYieldIndex = ptr(ind.DividendYieldIndex)
		row.PERWeighted = ptr(ind.PERWeighted)
		row.PERIndex = ptr(ind.PERIndex)
		row.PBRWeighted = ptr(ind.PBRWeighted)
		row.PBRIndex = ptr(ind.PBRIndex)
		row.MarketCap = ptr(ind.MarketCap)
		row.TradingValue = ptr(ind.TradingValue)
		row.MarketShare = ptr(ind.MarketShare)
	}

	return row
}

// ToRecord converts a row back into a domain record. Indicators stay nil
// only when every indicator column is NULL; individual NULLs read as 0.
func (r StockRecord) ToRecord() index.Record {
	rec := index.Record{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Date:      index.DateOf(r.Date, nil),
		Open:      r.OpenPrice,
		High:      r.HighPrice,
		Low:       r.LowPrice,
		Close:     r.ClosePrice,
		Volume:    r.Volume,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	cols := []*float64{
		r.DividendYieldSimple, r.DividendYieldIndex,
		r.PERWeighted, r.PERIndex,
		r.PBRWeighted, r.PBRIndex,
		r.MarketCap, r.TradingValue, r.MarketShare,
	}
	for _, c := range cols {
		if c != nil {
			rec.Indicators = &index.Indicators{
				DividendYieldSimple: deref(r.DividendYieldSimple),
				DividendYieldIndex:  deref(r.DividendYieldIndex),
				PERWeighted:         deref(r.PERWeighted),
				PERIndex:            deref(r.PERIndex),
				PBRWeighted:         deref(r.PBRWeighted),
				PBRIndex:            deref(r.PBRIndex),
				MarketCap:           deref(r.MarketCap),
				TradingValue:        deref(r.TradingValue),
				MarketShare:         deref(r.MarketShare),
			}
			break
		}
	}

	return rec
}

// mutableColumns lists every column an update overwrites.
func mutableColumns(rec index.Record) map[string]any {
	row := ToStockRecord(rec)
	return map[string]any{
		"open_price":            row.OpenPrice,
		"high_price":            row.HighPrice,
		"low_price":             row.LowPrice,
		"close_price":           row.ClosePrice,
		"volume":                row.Volume,
		"dividend_yield_simple": row.DividendYieldSimple,
		"dividend_yield_index":  row.DividendYieldIndex,
		"per_weighted":          row.PERWeighted,
		"per_index":             row.PERIndex,
		"pbr_weighted":          row.PBRWeighted,
		"pbr_index":             row.PBRIndex,
		"market_cap":            row.MarketCap,
		"trading_value":         row.TradingValue,
		"market_share":          row.MarketShare,
		"updated_at":            time.Now(),
	}
}

func ptr(v float64) *float64 { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
