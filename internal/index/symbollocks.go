package index

import "sync"

// SymbolLocks hands out one write mutex per symbol.
type SymbolLocks struct {
	globalMu sync.RWMutex
	locks    map[string]*sync.Mutex
}

func NewSymbolLocks() *SymbolLocks {
	return &SymbolLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock blocks until the write lock for symbol is held and returns its release func.
func (s *SymbolLocks) Lock(symbol string) (unlock func()) {
	// Fast path: symbol already registered
	s.globalMu.RLock()
	mu, ok := s.locks[symbol]
	s.globalMu.RUnlock()

	if !ok {
		s.globalMu.Lock()
		if mu, ok = s.locks[symbol]; !ok {
			mu = &sync.Mutex{}
			s.locks[symbol] = mu
		}
		s.globalMu.Unlock()
	}

	mu.Lock()
	return mu.Unlock
}

// Len returns the number of symbols that have been locked at least once.
func (s *SymbolLocks) Len() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	return len(s.locks)
}
