package catalogdb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/idlepick/internal/codec"
	"github.com/starford/idlepick/internal/selection"
	"github.com/starford/idlepick/internal/storage"
)

type storeImporter struct {
	mu  sync.Mutex
	sel *selection.Store
}

func (s *storeImporter) Import(r io.Reader) (codec.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.Import(r, s.sel)
}

func (s *storeImporter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Count()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func inboxEnv(t *testing.T) (string, storage.Provider, *DB, *storeImporter) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, testDB(t), &storeImporter{sel: selection.New()}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestDrainImportsOnce(t *testing.T) {
	dir, store, db, imp := inboxEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "a.csv"), []byte("appid,name\n10,CS\n20,TFC\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("30\n"), 0o644)

	var calls int
	cb := func(string, codec.ImportResult) { calls++ }
	if err := Drain(db, store, imp, quietLogger(), cb); err != nil {
		t.Fatal(err)
	}
	if imp.count() != 2 || calls != 1 {
		t.Fatalf("count=%d calls=%d", imp.count(), calls)
	}

	// Unchanged content is not re-imported.
	_ = Drain(db, store, imp, quietLogger(), cb)
	if calls != 1 {
		t.Errorf("calls = %d after second drain, want 1", calls)
	}
}

func TestWatchInboxImportsNewFile(t *testing.T) {
	dir, store, db, imp := inboxEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	go WatchInbox(ctx, db, store, dir, imp, quietLogger(), func(path string, _ codec.ImportResult) {
		mu.Lock()
		seen = append(seen, path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "drop.csv"), []byte("570,Dota 2\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return imp.count() == 1
	}, "dropped file not imported")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "drop.csv"
	}, "expected one callback for drop.csv")

	cs, _ := db.ImportChecksum("drop.csv")
	if cs == "" {
		t.Error("ledger not updated")
	}
}

func TestWatchInboxIgnoresOtherFiles(t *testing.T) {
	dir, store, db, imp := inboxEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchInbox(ctx, db, store, dir, imp, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "games.ps1"), []byte("10\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".hidden.csv"), []byte("10\n"), 0o644)
	time.Sleep(3 * inboxDebounce)

	if imp.count() != 0 {
		t.Errorf("count = %d, want 0", imp.count())
	}
}
