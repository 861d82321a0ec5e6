package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/banddepth/banddepth/pkg/mbd"
)

var (
	// ErrPinned is returned when an upload or delete targets an ensemble
	// loaded from a configured file.
	ErrPinned = errors.New("ensemble is pinned to a file")

	// ErrInvalidID is returned for an empty ensemble ID.
	ErrInvalidID = errors.New("invalid ensemble id")
)

// Manager applies uploads and deletes coming from the API: it builds the
// index, stores it unpinned and, when a Repository is set, persists the
// curves so they survive a restart.
type Manager struct {
	store *Store
	repo  *Repository // nil keeps uploads in memory only

	mu              sync.RWMutex
	defaultStrategy string
}

// NewManager returns a Manager writing to st and, if repo is not nil, to repo.
func NewManager(st *Store, repo *Repository, defaultStrategy string) *Manager {
	return &Manager{store: st, repo: repo, defaultStrategy: defaultStrategy}
}

// Store returns the underlying store.
func (m *Manager) Store() *Store { return m.store }

// SetDefaultStrategy changes the strategy used when an upload names none.
func (m *Manager) SetDefaultStrategy(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultStrategy = name
}

func (m *Manager) strategy(name string) (mbd.Strategy, string, error) {
	if name == "" {
		m.mu.RLock()
		name = m.defaultStrategy
		m.mu.RUnlock()
	}
	s, err := mbd.ParseStrategy(name)
	if err != nil {
		return 0, "", fmt.Errorf("ensemble: %w: %w", mbd.ErrInvalidInput, err)
	}
	return s, s.String(), nil
}

// Put builds an ensemble from curves (one per row) and stores it under id.
func (m *Manager) Put(ctx context.Context, id string, curves [][]float64, strategy string) (*Entry, error) {
	if err := m.checkWritable(id); err != nil {
		return nil, err
	}
	s, name, err := m.strategy(strategy)
	if err != nil {
		return nil, err
	}
	ix, err := mbd.FromCurves(curves, mbd.WithStrategy(s))
	if err != nil {
		return nil, fmt.Errorf("ensemble: build %q: %w", id, err)
	}
	return m.commit(ctx, id, ix, curves, name)
}

// PutMatrix builds an ensemble from a row-major matrix and stores it under id.
func (m *Manager) PutMatrix(ctx context.Context, id string, rows, timepoints int, data []float64, strategy string) (*Entry, error) {
	if err := m.checkWritable(id); err != nil {
		return nil, err
	}
	s, name, err := m.strategy(strategy)
	if err != nil {
		return nil, err
	}
	ix, err := mbd.FromMatrix(rows, timepoints, data, mbd.WithStrategy(s))
	if err != nil {
		return nil, fmt.Errorf("ensemble: build %q: %w", id, err)
	}
	var curves [][]float64
	if m.repo != nil {
		curves = make([][]float64, rows)
		for i := range curves {
			curves[i] = data[i*timepoints : (i+1)*timepoints]
		}
	}
	return m.commit(ctx, id, ix, curves, name)
}

func (m *Manager) commit(ctx context.Context, id string, ix *mbd.Index, curves [][]float64, strategy string) (*Entry, error) {
	e := m.store.Put(id, ix, OriginAPI, false)
	if m.repo != nil {
		rec := Record{ID: id, Curves: curves, Strategy: strategy, UpdatedAt: e.UpdatedAt}
		if err := m.repo.Save(ctx, rec); err != nil {
			// The in-memory copy stays usable; it just won't survive a restart.
			slog.Error("ensemble: persist failed", "id", id, "err", err)
		}
	}
	slog.Info("ensemble: uploaded",
		"id", id,
		"samples", ix.NumSamples(),
		"timepoints", ix.NumTimepoints(),
		"strategy", strategy,
		"version", e.Version,
	)
	return e, nil
}

// Delete removes an uploaded ensemble and reports whether it existed.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	if err := m.checkWritable(id); err != nil {
		return false, err
	}
	ok := m.store.Delete(id)
	if m.repo != nil {
		if err := m.repo.Delete(ctx, id); err != nil {
			return ok, err
		}
	}
	return ok, nil
}

// Forget drops evicted ensembles from the repository so they are not
// restored on the next start.
func (m *Manager) Forget(ctx context.Context, ids []string) {
	if m.repo == nil {
		return
	}
	for _, id := range ids {
		if err := m.repo.Delete(ctx, id); err != nil {
			slog.Error("ensemble: forget failed", "id", id, "err", err)
		}
	}
}

func (m *Manager) checkWritable(id string) error {
	if id == "" {
		return fmt.Errorf("ensemble: %w", ErrInvalidID)
	}
	if e, err := m.store.Get(id); err == nil && e.Pinned {
		return fmt.Errorf("ensemble: %q: %w", id, ErrPinned)
	}
	return nil
}
