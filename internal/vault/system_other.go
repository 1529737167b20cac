//go:build !windows && !(darwin && cgo)

package vault

// NewSystemProtector returns an AEADProtector keyed from a 0600 file at keyPath.
func NewSystemProtector(keyPath string) Protector {
	return &AEADProtector{Keys: FileKeySource{Path: keyPath}}
}
