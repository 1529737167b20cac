package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/catalogdb"
	"github.com/starford/idlepick/internal/filterview"
	"github.com/starford/idlepick/internal/machine"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/storage"
	"github.com/starford/idlepick/internal/vault"
)

// Runtime bundles the session and the resources behind it. Every host
// (HTTP server, MCP server, terminal picker, one-shot commands) builds one.
type Runtime struct {
	Session *picker.Session
	Vault   *vault.Vault
	Catalog *catalogdb.DB
	Exports *storage.FS
	Steam   *steam.Client
}

// NewRuntime opens the catalog cache and wires a session from cfg. The
// previous catalog snapshot is restored when one exists.
func NewRuntime(cfg *Config, logger *slog.Logger, events picker.EventFunc) (*Runtime, error) {
	if err := os.MkdirAll(cfg.Vault.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	exports, err := storage.EnsureFS(cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("init export dir: %w", err)
	}

	db, err := catalogdb.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog cache: %w", err)
	}

	v := vault.New(cfg.Vault.BlobPath(), vault.NewSystemProtector(cfg.Vault.KeyPath), machine.Local, logger)

	client := steam.NewClient(steam.Options{
		BaseURL:           cfg.Steam.BaseURL,
		Timeout:           cfg.Steam.Timeout,
		UserAgent:         cfg.Steam.UserAgent,
		RequestsPerSecond: cfg.Steam.RequestsPerSecond,
	})

	opts := []picker.Option{
		picker.WithCache(db),
		picker.WithView(filterview.New(cfg.App.Collation)),
		picker.WithLogger(logger),
	}
	if events != nil {
		opts = append(opts, picker.WithEvents(events))
	}
	svc := picker.New(client, v, opts...)

	if err := svc.Restore(); err != nil && !errors.Is(err, apperr.ErrNoCatalog) {
		logger.Warn("catalog cache unreadable, starting empty", slog.String("error", err.Error()))
	}

	return &Runtime{Session: svc, Vault: v, Catalog: db, Exports: exports, Steam: client}, nil
}

// Close releases the catalog cache.
func (rt *Runtime) Close() error {
	return rt.Catalog.Close()
}
