package ephemeris

import (
	"sync"
	"time"

	"github.com/astarte-labs/stellium/internal/domain"
)

type memoKey struct {
	body domain.Body
	at   int64 // unix nanoseconds, UTC; progression grids sample sub-second instants
}

type memoEntry struct {
	pos Position
	err error
}

// Memo wraps a provider with a per-scan cache. The coarse-to-fine
// refinement resamples the same instants across nested levels; caching
// them avoids the repeated recomputation without changing any result.
// Errors are cached too, so a failing window fails identically on every
// resample.
type Memo struct {
	inner Provider

	mu    sync.Mutex
	cache map[memoKey]memoEntry
}

// NewMemo wraps inner with a fresh cache. Create one per scan; the
// cache grows with the number of distinct sampled instants and is never
// evicted.
func NewMemo(inner Provider) *Memo {
	return &Memo{inner: inner, cache: make(map[memoKey]memoEntry)}
}

// Position implements Provider.
func (m *Memo) Position(body domain.Body, at time.Time) (Position, error) {
	key := memoKey{body: body, at: at.UnixNano()}

	m.mu.Lock()
	entry, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		return entry.pos, entry.err
	}

	pos, err := m.inner.Position(body, at)

	m.mu.Lock()
	m.cache[key] = memoEntry{pos: pos, err: err}
	m.mu.Unlock()

	return pos, err
}

// Size returns the number of cached samples, exposed for tests and
// scan diagnostics.
func (m *Memo) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
