package stockdb

import (
	"context"
	"errors"
	"time"

	"indexdash/internal/index"

	"gorm.io/gorm"
)

var _ index.Store = (*StockDB)(nil)

// Transaction runs fn inside one gorm transaction.
func (p *StockDB) Transaction(ctx context.Context, fn func(tx index.Tx) error) error {
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&stockTx{db: tx})
	})
}

func (p *StockDB) Recent(ctx context.Context, symbol string, limit int) ([]index.Record, error) {
	var rows []StockRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]index.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToRecord())
	}
	return out, nil
}

func (p *StockDB) LatestClose(ctx context.Context, symbol string) (float64, bool, error) {
	var rows []StockRecord
	err := p.DB.WithContext(ctx).
		Select("close_price").
		Where("symbol = ?", symbol).
		Order("date DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].ClosePrice, true, nil
}

func (p *StockDB) DeleteBefore(ctx context.Context, symbol string, cutoff time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("symbol = ? AND date < ?", symbol, index.DateOf(cutoff, nil)).
		Delete(&StockRecord{})
	return tx.RowsAffected, tx.Error
}

func (p *StockDB) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.DB.WithContext(ctx).Model(&StockRecord{}).Count(&n).Error
	return n, err
}

// stockTx implements index.Tx on an open gorm transaction.
type stockTx struct {
	db *gorm.DB
}

func (t *stockTx) FindByKey(ctx context.Context, symbol string, date time.Time) (*index.Record, error) {
	var row StockRecord
	err := t.db.WithContext(ctx).
		Where("symbol = ? AND date = ?", symbol, index.DateOf(date, nil)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, index.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	rec := row.ToRecord()
	return &rec, nil
}

func (t *stockTx) Insert(ctx context.Context, rec *index.Record) error {
	row := ToStockRecord(*rec)
	row.ID = 0

	err := t.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return index.ErrDuplicateKey
	}
	if err != nil {
		return err
	}

	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *stockTx) Update(ctx context.Context, id uint, rec index.Record) error {
	return t.db.WithContext(ctx).
		Model(&StockRecord{}).
		Where("id = ?", id).
		Updates(mutableColumns(rec)).Error
}
