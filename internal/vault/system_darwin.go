//go:build darwin && cgo

package vault

import (
	"crypto/rand"
	"errors"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"
)

const keychainService = "com.idlepick.vault"

// KeychainKeySource keeps the master key in the login Keychain as a
// this-device-only generic password, created on first use.
type KeychainKeySource struct {
	Service string
	Account string
}

// Key returns the stored key, generating it when the item does not exist.
func (s KeychainKeySource) Key() ([]byte, error) {
	key, err := gokeychain.GetGenericPassword(s.Service, s.Account, "", "")
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return nil, fmt.Errorf("keychain get %q: %w", s.Account, err)
	}
	if len(key) == masterKeySize {
		return key, nil
	}
	if len(key) != 0 {
		return nil, fmt.Errorf("keychain item %q has %d bytes, want %d", s.Account, len(key), masterKeySize)
	}

	key = make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	item := gokeychain.NewGenericPassword(s.Service, s.Account, "idlepick: "+s.Account, key, "")
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)
	if err := gokeychain.AddItem(item); err != nil {
		if errors.Is(err, gokeychain.ErrorDuplicateItem) {
			return s.Key()
		}
		return nil, fmt.Errorf("keychain add %q: %w", s.Account, err)
	}
	return key, nil
}

// NewSystemProtector returns an AEADProtector whose master key lives in the
// macOS Keychain. keyPath is unused on this platform.
func NewSystemProtector(keyPath string) Protector {
	return &AEADProtector{Keys: KeychainKeySource{Service: keychainService, Account: "master-key"}}
}
