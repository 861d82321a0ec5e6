package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "query:\n  workers: 2\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, p, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is ignored.
	if err := os.WriteFile(p, []byte("query:\n  workers: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("query:\n  workers: 6\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Query.Workers == 6 {
				cancel()
				if err := <-errc; err != nil {
					t.Fatalf("Watch returned %v", err)
				}
				return
			}
			if c.Query.Workers == 0 {
				t.Fatal("invalid config was delivered to onChange")
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatchFiles_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.csv")
	sibling := filepath.Join(dir, "b.csv")
	for _, p := range []string{target, sibling} {
		if err := os.WriteFile(p, []byte("1,2\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	go WatchFiles(ctx, []string{target}, func(p string) { changed <- p }) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(sibling, []byte("3,4\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(target, []byte("5,6\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case p := <-changed:
		if p != target {
			t.Errorf("onChange path: got %q, want %q", p, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatchFiles_MissingDir(t *testing.T) {
	err := WatchFiles(context.Background(), []string{"/nonexistent/dir/a.csv"}, func(string) {})
	if err == nil {
		t.Fatal("expected error for missing directory, got nil")
	}
}
