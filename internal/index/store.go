package index

import (
	"context"
	"time"
)

// Store is the relational table of daily index records.
type Store interface {
	// Transaction runs fn inside one database transaction.
	Transaction(ctx context.Context, fn func(tx Tx) error) error

	// Recent returns up to limit records for symbol, newest first.
	Recent(ctx context.Context, symbol string, limit int) ([]Record, error)

	// LatestClose returns the close of the newest record for symbol.
	// ok is false when the symbol has no rows.
	LatestClose(ctx context.Context, symbol string) (price float64, ok bool, err error)

	// DeleteBefore removes rows for symbol strictly older than cutoff.
	DeleteBefore(ctx context.Context, symbol string, cutoff time.Time) (int64, error)

	// Count returns the number of rows in the table.
	Count(ctx context.Context) (int64, error)
}

// Tx is the set of key-level operations available inside a transaction.
type Tx interface {
	FindByKey(ctx context.Context, symbol string, date time.Time) (*Record, error)
	// Insert stores rec and fills in ID and CreatedAt.
	Insert(ctx context.Context, rec *Record) error
	// Update overwrites every mutable field of row id with rec; CreatedAt is kept.
	Update(ctx context.Context, id uint, rec Record) error
}

// PriceFeed reports the most recent trading session for a symbol.
type PriceFeed interface {
	LatestQuote(ctx context.Context, symbol string) (Quote, error)
}
