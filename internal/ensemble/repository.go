package ensemble

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"           // registers the "postgres" driver
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/banddepth/banddepth/pkg/mbd"
)

// Record is one persisted ensemble upload.
type Record struct {
	ID        string
	Curves    [][]float64
	Strategy  string
	UpdatedAt time.Time
}

// Repository persists uploaded ensembles. Only the input curves are stored;
// indexes are rebuilt on Restore and depth results are never persisted.
//
// The SQL uses $n placeholders and ON CONFLICT upserts, which both the
// sqlite3 and postgres drivers accept.
type Repository struct {
	db *sql.DB
}

// driverName maps a storage.backend value to its database/sql driver.
func driverName(backend string) (string, error) {
	switch backend {
	case "sqlite":
		return "sqlite3", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("ensemble: unknown storage backend %q", backend)
	}
}

// Open connects to backend ("sqlite" or "postgres") and ensures the schema.
func Open(ctx context.Context, backend, dsn string) (*Repository, error) {
	driver, err := driverName(backend)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ensemble: open %s: %w", backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensemble: ping %s: %w", backend, err)
	}
	r := NewRepository(db)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the ensembles table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS depth_ensembles (
  id          TEXT    NOT NULL PRIMARY KEY,
  samples     INTEGER NOT NULL,
  timepoints  INTEGER NOT NULL,
  strategy    TEXT    NOT NULL,
  curves_json TEXT    NOT NULL,
  updated_ms  BIGINT  NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("ensemble: ensure schema: %w", err)
	}
	return nil
}

// Save inserts or replaces rec.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec.Curves)
	if err != nil {
		return fmt.Errorf("ensemble: encode curves %q: %w", rec.ID, err)
	}
	timepoints := 0
	if len(rec.Curves) > 0 {
		timepoints = len(rec.Curves[0])
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO depth_ensembles (id, samples, timepoints, strategy, curves_json, updated_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  samples = excluded.samples,
  timepoints = excluded.timepoints,
  strategy = excluded.strategy,
  curves_json = excluded.curves_json,
  updated_ms = excluded.updated_ms`,
		rec.ID, len(rec.Curves), timepoints, rec.Strategy, string(body), rec.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("ensemble: save %q: %w", rec.ID, err)
	}
	return nil
}

// Delete removes the record for id. Deleting a missing record is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM depth_ensembles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ensemble: delete %q: %w", id, err)
	}
	return nil
}

// LoadAll returns every stored record ordered by ID.
func (r *Repository) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, strategy, curves_json, updated_ms FROM depth_ensembles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ensemble: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			body string
			ms   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Strategy, &body, &ms); err != nil {
			return nil, fmt.Errorf("ensemble: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &rec.Curves); err != nil {
			return nil, fmt.Errorf("ensemble: decode curves %q: %w", rec.ID, err)
		}
		rec.UpdatedAt = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ensemble: rows: %w", err)
	}
	return out, nil
}

// Restore rebuilds every stored record into st as an unpinned entry that
// keeps its stored update time, so the TTL is not reset by a restart.
// Records that no longer build are logged and skipped.
func Restore(ctx context.Context, repo *Repository, st *Store) (int, error) {
	recs, err := repo.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, rec := range recs {
		strategy, err := mbd.ParseStrategy(rec.Strategy)
		if err != nil {
			slog.Warn("ensemble: stored strategy invalid, using auto", "id", rec.ID, "err", err)
		}
		ix, err := mbd.FromCurves(rec.Curves, mbd.WithStrategy(strategy))
		if err != nil {
			slog.Error("ensemble: skipping stored ensemble", "id", rec.ID, "err", err)
			continue
		}
		st.put(rec.ID, ix, OriginStorage, false, rec.UpdatedAt)
		restored++
	}
	return restored, nil
}
