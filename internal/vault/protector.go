package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Protector is the local protection primitive. aad carries the machine
// diversification bytes; Unprotect must fail when it differs from the value
// given to Protect.
type Protector interface {
	Protect(plain, aad []byte) ([]byte, error)
	Unprotect(sealed, aad []byte) ([]byte, error)
}

// KeySource supplies the 32-byte master key for AEADProtector.
type KeySource interface {
	Key() ([]byte, error)
}

const (
	masterKeySize = 32
	hkdfInfo      = "idlepick credential vault v1"
)

// AEADProtector seals with XChaCha20-Poly1305 under a subkey derived by
// HKDF-SHA256 from the master key, salted with aad. aad is also bound as
// additional data. Output layout: nonce || ciphertext+tag.
type AEADProtector struct {
	Keys KeySource
}

// Protect seals plain.
func (p *AEADProtector) Protect(plain, aad []byte) ([]byte, error) {
	aead, err := p.cipher(aad)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, aad), nil
}

// Unprotect opens data produced by Protect with the same aad.
func (p *AEADProtector) Unprotect(sealed, aad []byte) ([]byte, error) {
	aead, err := p.cipher(aad)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("vault: sealed data too short")
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, fmt.Errorf("vault: open: %w", err)
	}
	return plain, nil
}

func (p *AEADProtector) cipher(aad []byte) (cipher.AEAD, error) {
	master, err := p.Keys.Key()
	if err != nil {
		return nil, fmt.Errorf("vault: master key: %w", err)
	}
	sub := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, aad, []byte(hkdfInfo)), sub); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return chacha20poly1305.NewX(sub)
}

// FileKeySource keeps the master key in a file only the owner can read,
// creating it on first use.
type FileKeySource struct {
	Path string
}

// Key returns the stored key, generating it when the file does not exist.
func (s FileKeySource) Key() ([]byte, error) {
	key, err := os.ReadFile(s.Path)
	if err == nil {
		if len(key) != masterKeySize {
			return nil, fmt.Errorf("vault: key file %s has %d bytes, want %d", s.Path, len(key), masterKeySize)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key = make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		// Lost a race with another writer; use theirs.
		return s.Key()
	}
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(key); err != nil {
		_ = f.Close()
		_ = os.Remove(s.Path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return key, nil
}
