package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/codec"
	"github.com/starford/idlepick/internal/storage"
)

const utf8BOM = "\uFEFF"

// ExportResult describes one written export.
type ExportResult struct {
	ID    string   `json:"id"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

type artifactFile struct {
	name string
	body string
	// prev is the content replaced by this export, nil if the file is new.
	prev []byte
}

// Export renders the selection and writes games.ps1, selected_games.csv and
// start.bat into out. The script and CSV carry a UTF-8 byte order mark.
// Either all three files are written or out is put back the way it was:
// files that existed before are restored, new ones are removed.
func (s *Session) Export(ctx context.Context, out storage.Provider) (ExportResult, error) {
	s.mu.Lock()
	art, err := codec.Exporter{View: s.view}.Export(s.catalog, s.sel)
	s.mu.Unlock()
	if err != nil {
		return ExportResult{}, err
	}

	files := []artifactFile{
		{name: codec.ScriptFile, body: utf8BOM + art.Script},
		{name: codec.CSVFile, body: utf8BOM + art.CSV},
		{name: codec.LauncherFile, body: art.Launcher},
	}

	res := ExportResult{ID: uuid.NewString(), Count: art.Count}
	for i := range files {
		f := &files[i]
		abs, err := out.Abs(f.name)
		if err != nil {
			return ExportResult{}, fmt.Errorf("export %s: %w", f.name, err)
		}
		res.Files = append(res.Files, abs)

		prev, err := out.Read(f.name)
		switch {
		case err == nil:
			f.prev = prev
		case errors.Is(err, fs.ErrNotExist):
		default:
			return ExportResult{}, fmt.Errorf("export %s: %w", f.name, err)
		}
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			s.rollback(out, files[:i])
			return ExportResult{}, err
		}
		if err := out.Write(f.name, []byte(f.body)); err != nil {
			s.rollback(out, files[:i])
			return ExportResult{}, fmt.Errorf("export %s: %w", f.name, err)
		}
	}

	s.logger.Info("selection exported",
		slog.String("export_id", res.ID),
		slog.Int("count", res.Count))
	s.emit(Event{Kind: EventExportCompleted, Data: res})
	return res, nil
}

func (s *Session) rollback(out storage.Provider, written []artifactFile) {
	for _, f := range written {
		var err error
		if f.prev != nil {
			err = out.Write(f.name, f.prev)
		} else {
			err = out.Delete(f.name)
		}
		if err != nil {
			s.logger.Warn("export rollback failed", slog.String("file", f.name), slog.String("error", err.Error()))
		}
	}
}

// Import merges the app ids listed in a CSV stream into the selection. A
// read failure leaves the selection unchanged.
func (s *Session) Import(r io.Reader) (codec.ImportResult, error) {
	ids, skipped, err := codec.ParseIDs(r)
	if err != nil {
		return codec.ImportResult{}, err
	}

	s.mu.Lock()
	added := s.sel.ImportMerge(ids)
	n := s.sel.Count()
	s.mu.Unlock()

	s.logger.Info("selection imported",
		slog.Int("added", added),
		slog.Int("parsed", len(ids)),
		slog.Int("skipped", skipped))
	s.selectionChanged(n, added)
	return codec.ImportResult{Added: added, Parsed: len(ids), Skipped: skipped}, nil
}

// ImportFile opens path and imports it.
func (s *Session) ImportFile(path string) (codec.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return codec.ImportResult{}, fmt.Errorf("%w: %v", apperr.ErrImportSourceUnreadable, err)
	}
	defer f.Close()
	return s.Import(f)
}
