package ensemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banddepth/banddepth/pkg/mbd"
)

func TestManager_PutAndPersist(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t)
	st := NewStore(time.Hour)
	m := NewManager(st, repo, "search")

	e, err := m.Put(ctx, "curves", [][]float64{{4, 5, 6}, {1, 2, 3}}, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if e.Origin != OriginAPI || e.Pinned || e.Index.Strategy() != mbd.StrategySearch {
		t.Errorf("entry: got origin=%s pinned=%v strategy=%v", e.Origin, e.Pinned, e.Index.Strategy())
	}

	// Row-major [[4,5,6],[1,2,3]].
	if _, err := m.PutMatrix(ctx, "matrix", 2, 3, []float64{4, 5, 6, 1, 2, 3}, "scan"); err != nil {
		t.Fatalf("PutMatrix: %v", err)
	}
	a, _ := st.Get("curves")
	b, _ := st.Get("matrix")
	if a.Index.Block(1)[0] != b.Index.Block(1)[0] || b.Index.Strategy() != mbd.StrategyScan {
		t.Errorf("matrix upload differs from curve upload")
	}

	recs, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "curves" || recs[0].Strategy != "search" || recs[1].Curves[1][2] != 3 {
		t.Errorf("persisted: got %+v", recs)
	}

	// Restart: a fresh store restored from the repository serves the same depth.
	fresh := NewStore(time.Hour)
	if n, err := Restore(ctx, repo, fresh); err != nil || n != 2 {
		t.Fatalf("Restore: got %d, %v", n, err)
	}
	got, _ := fresh.Get("matrix")
	if d, _ := got.Index.Query([]float64{2, 3, 4}); d != 1 {
		t.Errorf("restored Query: got %v, want 1", d)
	}
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()
	st := NewStore(time.Hour)
	st.Put("pinned", index(t, []float64{1}, []float64{2}), OriginFile, true)
	m := NewManager(st, nil, "auto")

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"empty id", func() error { _, err := m.Put(ctx, "", [][]float64{{1}, {2}}, ""); return err }, ErrInvalidID},
		{"pinned put", func() error { _, err := m.Put(ctx, "pinned", [][]float64{{1}, {2}}, ""); return err }, ErrPinned},
		{"pinned delete", func() error { _, err := m.Delete(ctx, "pinned"); return err }, ErrPinned},
		{"bad strategy", func() error { _, err := m.Put(ctx, "x", [][]float64{{1}, {2}}, "fast"); return err }, mbd.ErrInvalidInput},
		{"ragged", func() error { _, err := m.Put(ctx, "x", [][]float64{{1, 2}, {2}}, ""); return err }, mbd.ErrInvalidInput},
		{"matrix size", func() error { _, err := m.PutMatrix(ctx, "x", 2, 2, []float64{1, 2, 3}, ""); return err }, mbd.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err: got %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := st.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Error("failed upload left an entry behind")
	}
}

func TestManager_DeleteAndForget(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t)
	st := NewStore(time.Hour)
	m := NewManager(st, repo, "auto")

	m.Put(ctx, "a", [][]float64{{1}, {2}}, "") //nolint:errcheck
	m.Put(ctx, "b", [][]float64{{1}, {2}}, "") //nolint:errcheck

	if ok, err := m.Delete(ctx, "a"); !ok || err != nil {
		t.Fatalf("Delete: got %v, %v", ok, err)
	}
	if ok, _ := m.Delete(ctx, "a"); ok {
		t.Error("second Delete reported the entry as present")
	}

	m.Forget(ctx, []string{"b"})
	recs, _ := repo.LoadAll(ctx)
	if len(recs) != 0 {
		t.Errorf("repository after delete+forget: got %d records, want 0", len(recs))
	}
	if _, err := st.Get("b"); err != nil {
		t.Error("Forget must not touch the store")
	}
}
