package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"indexdash/internal/index"
)

var _ index.Store = (*MemoryStore)(nil)

type key struct {
	symbol string
	date   time.Time
}

// MemoryStore keeps records in process memory. Transactions hold the store
// lock for their whole duration and roll back on error.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[key]index.Record
	nextID uint
	now    func() time.Time

	failNext error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[key]index.Record),
		nextID: 1,
		now:    time.Now,
	}
}

// FailNext makes the next store call return err.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// takeFailure returns and clears a pending injected error. Callers hold m.mu.
func (m *MemoryStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MemoryStore) Transaction(_ context.Context, fn func(tx index.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	// Copy to roll back on error
	snapshot := make(map[key]index.Record, len(m.rows))
	for k, v := range m.rows {
		snapshot[k] = v
	}
	nextID := m.nextID

	if err := fn(&memoryTx{m: m}); err != nil {
		m.rows = snapshot
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, symbol string, limit int) ([]index.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	out := m.bySymbol(symbol)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) LatestClose(_ context.Context, symbol string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return 0, false, err
	}

	rows := m.bySymbol(symbol)
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Close, true, nil
}

func (m *MemoryStore) DeleteBefore(_ context.Context, symbol string, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return 0, err
	}

	cutoff = index.DateOf(cutoff, nil)
	var n int64
	for k := range m.rows {
		if k.symbol == symbol && k.date.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return 0, err
	}
	return int64(len(m.rows)), nil
}

// bySymbol returns copies of symbol's rows, newest first. Callers hold m.mu.
func (m *MemoryStore) bySymbol(symbol string) []index.Record {
	out := make([]index.Record, 0)
	for k, v := range m.rows {
		if k.symbol == symbol {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b index.Record) int { return b.Date.Compare(a.Date) })
	return out
}

// memoryTx operates on the store while its Transaction holds m.mu.
type memoryTx struct {
	m *MemoryStore
}

func (t *memoryTx) FindByKey(_ context.Context, symbol string, date time.Time) (*index.Record, error) {
	rec, ok := t.m.rows[key{symbol, index.DateOf(date, nil)}]
	if !ok {
		return nil, index.ErrRecordNotFound
	}
	return &rec, nil
}

func (t *memoryTx) Insert(_ context.Context, rec *index.Record) error {
	k := key{rec.Symbol, index.DateOf(rec.Date, nil)}
	if _, ok := t.m.rows[k]; ok {
		return index.ErrDuplicateKey
	}

	now := t.m.now()
	rec.ID = t.m.nextID
	rec.Date = k.date
	rec.CreatedAt = now
	rec.UpdatedAt = now
	t.m.nextID++

	t.m.rows[k] = *rec
	return nil
}

func (t *memoryTx) Update(_ context.Context, id uint, rec index.Record) error {
	for k, existing := range t.m.rows {
		if existing.ID != id {
			continue
		}

		rec.ID = id
		rec.Symbol = k.symbol
		rec.Date = k.date
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = t.m.now()
		t.m.rows[k] = rec
		return nil
	}
	return index.ErrRecordNotFound
}

// IsHealthy always reports true; there is no connection to lose.
func (m *MemoryStore) IsHealthy(context.Context) bool {
	return true
}
