// Package vault keeps the Steam API key and identity in a machine-bound
// encrypted file.
//
// The protection is diversification, not confidentiality against the local
// machine: on Windows the blob is sealed with DPAPI in machine scope, so any
// account on the same computer can decrypt it; elsewhere it is sealed with a
// master key readable by the owning user (a 0600 file, or the macOS login
// Keychain). The machine diversification bytes are mixed into every seal, so
// a blob copied to another computer fails to decrypt and is discarded.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/machine"
	"github.com/starford/idlepick/internal/models"
)

// BlobFile is the vault file name.
const BlobFile = "idle_master_game_picker.dat"

// State describes the blob on disk.
type State int

const (
	StateAbsent State = iota
	StatePresent
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateCorrupt:
		return "corrupt"
	default:
		return "absent"
	}
}

// Vault owns one blob file.
type Vault struct {
	path      string
	protector Protector
	source    machine.Source
	logger    *slog.Logger
}

// New creates a vault for the blob at path.
func New(path string, p Protector, src machine.Source, logger *slog.Logger) *Vault {
	if src == nil {
		src = machine.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{path: path, protector: p, source: src, logger: logger.With(slog.String("component", "vault"))}
}

// DefaultDir returns the per-user cache directory for idlepick, falling back
// to the temp dir.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "idlepick")
	}
	return filepath.Join(os.TempDir(), "idlepick")
}

// Path returns the blob location.
func (v *Vault) Path() string {
	return v.path
}

// Save seals cred and replaces the blob. Failures wrap apperr.ErrVaultWrite.
func (v *Vault) Save(cred models.Credential) error {
	plain, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", apperr.ErrVaultWrite, err)
	}
	sealed, err := v.protector.Protect(plain, v.source.Diversification())
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrVaultWrite, err)
	}
	blob := []byte(base64.StdEncoding.EncodeToString(sealed))
	if err := writeAtomic(v.path, blob); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrVaultWrite, err)
	}
	v.logger.Info("vault: credentials saved", slog.String("path", v.path))
	return nil
}

// Load returns the stored credential. A missing or empty blob is
// StateAbsent. A blob that cannot be decoded or decrypted, including one
// written on another machine, is deleted and reported as StateCorrupt with an
// empty credential. Only read failures other than non-existence are errors.
func (v *Vault) Load() (models.Credential, State, error) {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Credential{}, StateAbsent, nil
	}
	if err != nil {
		return models.Credential{}, StateAbsent, fmt.Errorf("vault: read %s: %w", v.path, err)
	}

	text := strings.TrimSpace(strings.TrimPrefix(string(data), "\uFEFF"))
	if text == "" {
		return models.Credential{}, StateAbsent, nil
	}

	cred, err := v.open(text)
	if err != nil {
		v.logger.Info("vault: saved credentials could not be decrypted, discarding",
			slog.String("path", v.path), slog.String("error", err.Error()))
		v.remove()
		return models.Credential{}, StateCorrupt, nil
	}
	return cred, StatePresent, nil
}

// State probes the blob. A corrupt blob is discarded like Load does.
func (v *Vault) State() (State, error) {
	_, st, err := v.Load()
	return st, err
}

// Forget deletes the blob. It is idempotent and never fails; a deletion
// error is only logged.
func (v *Vault) Forget() {
	v.remove()
	v.logger.Info("vault: credentials forgotten", slog.String("path", v.path))
}

func (v *Vault) open(text string) (models.Credential, error) {
	sealed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: base64: %v", apperr.ErrVaultCorrupt, err)
	}
	plain, err := v.protector.Unprotect(sealed, v.source.Diversification())
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", apperr.ErrVaultCorrupt, err)
	}
	var cred models.Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return models.Credential{}, fmt.Errorf("%w: decode: %v", apperr.ErrVaultCorrupt, err)
	}
	return cred, nil
}

func (v *Vault) remove() {
	if err := os.Remove(v.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		v.logger.Warn("vault: delete failed", slog.String("path", v.path), slog.String("error", err.Error()))
	}
}

// writeAtomic writes content via tmp file, fsync and rename. CreateTemp
// already opens the file with mode 0600.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".idlepick-vault-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}
