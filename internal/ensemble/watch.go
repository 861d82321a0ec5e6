package ensemble

import (
	"context"
	"log/slog"

	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/pkg/mbd"
)

// LoadSources builds every configured ensemble and pins it in st.
// defaultStrategy applies to sources that do not set their own.
// A source that fails to load is logged and skipped; the number of
// ensembles loaded is returned.
func LoadSources(st *Store, sources []config.EnsembleSource, defaultStrategy string) int {
	loaded := 0
	for _, src := range sources {
		if err := loadSource(st, src, defaultStrategy); err != nil {
			slog.Error("ensemble: skipping source, could not load", "id", src.ID, "path", src.Path, "err", err)
			continue
		}
		loaded++
	}
	return loaded
}

// WatchFiles rebuilds a pinned ensemble whenever its file changes. A rebuild
// that fails keeps the previous index in place. It blocks until ctx is
// cancelled.
func WatchFiles(ctx context.Context, st *Store, sources []config.EnsembleSource, defaultStrategy string) error {
	if len(sources) == 0 {
		<-ctx.Done()
		return nil
	}
	byPath := make(map[string][]config.EnsembleSource, len(sources))
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, ok := byPath[src.Path]; !ok {
			paths = append(paths, src.Path)
		}
		byPath[src.Path] = append(byPath[src.Path], src)
	}

	return config.WatchFiles(ctx, paths, func(path string) {
		for _, src := range byPath[path] {
			if err := loadSource(st, src, defaultStrategy); err != nil {
				slog.Error("ensemble: rebuild failed, keeping previous index",
					"id", src.ID, "path", path, "err", err)
				continue
			}
			slog.Info("ensemble: rebuilt from file", "id", src.ID, "path", path)
		}
	})
}

func loadSource(st *Store, src config.EnsembleSource, defaultStrategy string) error {
	name := src.Strategy
	if name == "" {
		name = defaultStrategy
	}
	strategy, err := mbd.ParseStrategy(name)
	if err != nil {
		return err
	}
	ix, err := LoadFile(src.Path, mbd.WithStrategy(strategy))
	if err != nil {
		return err
	}
	e := st.Put(src.ID, ix, OriginFile, true)
	slog.Info("ensemble: loaded",
		"id", src.ID,
		"samples", ix.NumSamples(),
		"timepoints", ix.NumTimepoints(),
		"strategy", strategy.String(),
		"version", e.Version,
	)
	return nil
}
