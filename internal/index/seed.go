package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SampleRecords are written into an empty table on first start.
func SampleRecords(symbol string) []Record {
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	return []Record{
		{Symbol: symbol, Date: day(1), Open: 33000.00, High: 33500.00, Low: 32800.00, Close: 33200.00, Volume: 1000000},
		{Symbol: symbol, Date: day(2), Open: 33200.00, High: 33800.00, Low: 33100.00, Close: 33600.00, Volume: 1200000},
		{Symbol: symbol, Date: day(3), Open: 33600.00, High: 34000.00, Low: 33400.00, Close: 33900.00, Volume: 1100000},
		{Symbol: symbol, Date: day(4), Open: 33900.00, High: 34200.00, Low: 33700.00, Close: 34100.00, Volume: 1300000},
		{Symbol: symbol, Date: day(5), Open: 34100.00, High: 34500.00, Low: 33900.00, Close: 34300.00, Volume: 1150000},
	}
}

// Seed inserts records when the table is empty and reports how many were written.
// Seed rows carry no indicators; readers see them as zeros.
func Seed(ctx context.Context, store Store, records []Record, logger *zap.Logger) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stocks: %w", err)
	}
	if n > 0 {
		logger.Debug("stocks table already populated, skipping seed", zap.Int64("rows", n))
		return 0, nil
	}

	err = store.Transaction(ctx, func(tx Tx) error {
		for i := range records {
			rec := records[i]
			if err := tx.Insert(ctx, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed stocks: %w", err)
	}

	logger.Info("seeded empty stocks table", zap.Int("rows", len(records)))
	return len(records), nil
}
