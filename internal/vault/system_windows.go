//go:build windows

package vault

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DPAPIProtector uses CryptProtectData in machine scope with the
// diversification bytes as optional entropy. Any account on the machine can
// unprotect the data.
type DPAPIProtector struct{}

// Protect seals plain.
func (DPAPIProtector) Protect(plain, aad []byte) ([]byte, error) {
	var out windows.DataBlob
	err := windows.CryptProtectData(dataBlob(plain), nil, dataBlob(aad), 0, nil,
		windows.CRYPTPROTECT_LOCAL_MACHINE|windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("vault: CryptProtectData: %w", err)
	}
	return takeBlob(&out), nil
}

// Unprotect opens data sealed by Protect with the same aad.
func (DPAPIProtector) Unprotect(sealed, aad []byte) ([]byte, error) {
	var out windows.DataBlob
	err := windows.CryptUnprotectData(dataBlob(sealed), nil, dataBlob(aad), 0, nil,
		windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("vault: CryptUnprotectData: %w", err)
	}
	return takeBlob(&out), nil
}

func dataBlob(b []byte) *windows.DataBlob {
	if len(b) == 0 {
		return nil
	}
	return &windows.DataBlob{Size: uint32(len(b)), Data: &b[0]}
}

func takeBlob(b *windows.DataBlob) []byte {
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(b.Data)))
	return bytes.Clone(unsafe.Slice(b.Data, b.Size))
}

// NewSystemProtector returns the DPAPI protector. keyPath is unused on Windows.
func NewSystemProtector(keyPath string) Protector {
	return DPAPIProtector{}
}
