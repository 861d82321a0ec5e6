package ensemble

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/banddepth/banddepth/pkg/depthv1"
	"github.com/banddepth/banddepth/pkg/mbd"
)

// ErrNotFound is returned when no live ensemble has the requested ID.
var ErrNotFound = errors.New("ensemble not found")

// Origin records where an entry's index came from.
type Origin string

const (
	OriginFile    Origin = "file"
	OriginAPI     Origin = "api"
	OriginStorage Origin = "storage"
)

// Entry is a built index together with its bookkeeping.
type Entry struct {
	ID        string
	Index     *mbd.Index
	Origin    Origin
	Pinned    bool
	Version   uint64
	UpdatedAt time.Time
}

// Info returns the wire summary of e.
func (e *Entry) Info() depthv1.EnsembleInfo {
	return depthv1.EnsembleInfo{
		ID:         e.ID,
		Origin:     string(e.Origin),
		Pinned:     e.Pinned,
		Samples:    e.Index.NumSamples(),
		Timepoints: e.Index.NumTimepoints(),
		Strategy:   e.Index.Strategy().String(),
		Version:    e.Version,
		UpdatedAt:  e.UpdatedAt,
	}
}

// Store is a thread-safe in-memory registry of ensembles keyed by ID.
// A background goroutine (Run) periodically evicts unpinned entries that
// have not been updated within the configured TTL.
type Store struct {
	mu      sync.RWMutex
	data    map[string]*Entry
	ttl     time.Duration
	version uint64
	now     func() time.Time // injectable for deterministic tests
}

// NewStore creates a Store with the given TTL. A zero TTL disables eviction.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the index for id and returns the new entry.
// Callers must not use ix through other references after Put; indexes are
// immutable, so sharing them with the store is safe.
func (s *Store) Put(id string, ix *mbd.Index, origin Origin, pinned bool) *Entry {
	return s.put(id, ix, origin, pinned, time.Time{})
}

// put stores ix with the given update time, or the current time if at is
// zero. The TTL runs from at.
func (s *Store) put(id string, ix *mbd.Index, origin Origin, pinned bool, at time.Time) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.IsZero() {
		at = s.now()
	}
	s.version++
	e := &Entry{
		ID:        id,
		Index:     ix,
		Origin:    origin,
		Pinned:    pinned,
		Version:   s.version,
		UpdatedAt: at,
	}
	s.data[id] = e
	return e
}

// Get returns the live entry for id, or ErrNotFound if there is none or it
// has outlived the TTL.
func (s *Store) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !s.live(e, s.now()) {
		return nil, ErrNotFound
	}
	return e, nil
}

// List returns all live entries sorted by ID.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	now := s.now()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	delete(s.data, id)
	return ok
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the eviction TTL for unpinned entries.
func (s *Store) TTL() time.Duration { return s.ttl }

// Evict removes unpinned entries whose UpdatedAt is older than now minus TTL.
// It returns the IDs removed.
func (s *Store) Evict(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled. onEvict, if not nil,
// is called with the IDs removed by each tick.
func (s *Store) Run(ctx context.Context, onEvict func(ids []string)) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if ids := s.Evict(now); len(ids) > 0 {
				slog.Debug("ensemble: evicted stale ensembles", "count", len(ids))
				if onEvict != nil {
					onEvict(ids)
				}
			}
		}
	}
}

func (s *Store) live(e *Entry, now time.Time) bool {
	if e.Pinned || s.ttl <= 0 {
		return true
	}
	return e.UpdatedAt.After(now.Add(-s.ttl))
}
