package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reconciler writes generated records to the Store, one (symbol, date) key
// at a time. Writes for the same symbol are serialized in-process; across
// processes the store's unique (symbol, date) index is what prevents duplicates.
type Reconciler struct {
	store  Store
	locks  *SymbolLocks
	logger *zap.Logger
}

func NewReconciler(store Store, locks *SymbolLocks, logger *zap.Logger) *Reconciler {
	if locks == nil {
		locks = NewSymbolLocks()
	}
	return &Reconciler{
		store:  store,
		locks:  locks,
		logger: logger.With(zap.String("component", "reconciler")),
	}
}

// Upsert updates the row for (rec.Symbol, rec.Date) in place, or inserts it
// when absent. CreatedAt of an existing row is never changed.
func (r *Reconciler) Upsert(ctx context.Context, rec Record) (WriteOutcome, error) {
	unlock := r.locks.Lock(rec.Symbol)
	defer unlock()

	var out WriteOutcome
	write := func(tx Tx) error {
		var err error
		out, err = upsertTx(ctx, tx, rec)
		return err
	}

	err := r.store.Transaction(ctx, write)
	if errors.Is(err, ErrDuplicateKey) {
		// another process created the key between lookup and insert;
		// a fresh transaction will now take the update branch
		r.logger.Warn("concurrent insert detected, retrying as update", zap.String("symbol", rec.Symbol))
		err = r.store.Transaction(ctx, write)
	}
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("upsert %s %s: %w", rec.Symbol, rec.Date.Format("2006-01-02"), err)
	}

	r.logger.Debug("record written",
		zap.String("symbol", rec.Symbol),
		zap.Time("date", rec.Date),
		zap.String("action", string(out.Action)),
		zap.Uint("id", out.ID),
	)
	return out, nil
}

// InsertIfAbsent inserts rec unless a row for its key already exists.
func (r *Reconciler) InsertIfAbsent(ctx context.Context, rec Record) (WriteOutcome, error) {
	unlock := r.locks.Lock(rec.Symbol)
	defer unlock()

	var out WriteOutcome
	err := r.store.Transaction(ctx, func(tx Tx) error {
		existing, err := tx.FindByKey(ctx, rec.Symbol, rec.Date)
		switch {
		case err == nil:
			out = WriteOutcome{Action: ActionSkipped, ID: existing.ID}
			return nil
		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		if err := tx.Insert(ctx, &rec); err != nil {
			return err
		}
		out = WriteOutcome{Action: ActionInserted, ID: rec.ID}
		return nil
	})
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("insert %s %s: %w", rec.Symbol, rec.Date.Format("2006-01-02"), err)
	}
	return out, nil
}

// Purge removes rows for symbol older than cutoff under the symbol's write lock.
func (r *Reconciler) Purge(ctx context.Context, symbol string, cutoff time.Time) (int64, error) {
	unlock := r.locks.Lock(symbol)
	defer unlock()

	n, err := r.store.DeleteBefore(ctx, symbol, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge %s before %s: %w", symbol, cutoff.Format("2006-01-02"), err)
	}
	return n, nil
}

func upsertTx(ctx context.Context, tx Tx, rec Record) (WriteOutcome, error) {
	existing, err := tx.FindByKey(ctx, rec.Symbol, rec.Date)
	if err == nil {
		if err := tx.Update(ctx, existing.ID, rec); err != nil {
			return WriteOutcome{}, err
		}
		return WriteOutcome{Action: ActionUpdated, ID: existing.ID}, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return WriteOutcome{}, err
	}

	if err := tx.Insert(ctx, &rec); err != nil {
		return WriteOutcome{}, err
	}
	return WriteOutcome{Action: ActionInserted, ID: rec.ID}, nil
}
