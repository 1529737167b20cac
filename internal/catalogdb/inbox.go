package catalogdb

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/idlepick/internal/checksum"
	"github.com/starford/idlepick/internal/codec"
	"github.com/starford/idlepick/internal/storage"
)

const inboxDebounce = 200 * time.Millisecond

// Importer merges a CSV stream into the live selection.
type Importer interface {
	Import(r io.Reader) (codec.ImportResult, error)
}

// ImportCallback is called after each inbox file is imported.
type ImportCallback func(path string, res codec.ImportResult)

// Drain imports every .csv under the inbox whose content differs from the
// ledger's record. Files are processed in List order.
func Drain(ledger Ledger, store storage.Provider, imp Importer, logger *slog.Logger, cb ImportCallback) error {
	files, err := store.List("", ".csv")
	if err != nil {
		return err
	}
	for _, f := range files {
		importOne(ledger, store, imp, f.Path, logger, cb)
	}
	return nil
}

// WatchInbox watches inboxRoot for CSV files and imports each new or
// changed file once, until ctx is cancelled. Bursts of writes are coalesced.
func WatchInbox(ctx context.Context, ledger Ledger, store storage.Provider, inboxRoot string, imp Importer, logger *slog.Logger, cb ImportCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inboxRoot); err != nil {
		return err
	}
	logger.Info("inbox: watching", slog.String("root", inboxRoot))

	if err := Drain(ledger, store, imp, logger, cb); err != nil {
		logger.Warn("inbox: initial drain failed", slog.String("error", err.Error()))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(inboxDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(inboxDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			for rel := range pending {
				importOne(ledger, store, imp, rel, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.EqualFold(filepath.Ext(name), ".csv") || strings.HasPrefix(name, ".") {
				continue
			}
			rel, relErr := filepath.Rel(inboxRoot, ev.Name)
			if relErr != nil {
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func importOne(ledger Ledger, store storage.Provider, imp Importer, rel string, logger *slog.Logger, cb ImportCallback) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	cs := checksum.Sum(data)
	prev, err := ledger.ImportChecksum(rel)
	if err != nil {
		logger.Warn("inbox: ledger lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if prev == cs {
		return
	}

	res, err := imp.Import(bytes.NewReader(data))
	if err != nil {
		logger.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := ledger.RecordImport(ImportRecord{Path: rel, Checksum: cs, Added: res.Added, Skipped: res.Skipped}); err != nil {
		logger.Warn("inbox: ledger write failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	logger.Info("inbox: imported",
		slog.String("path", rel),
		slog.Int("added", res.Added),
		slog.Int("skipped", res.Skipped))
	if cb != nil {
		cb(rel, res)
	}
}
