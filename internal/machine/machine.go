// Package machine derives the non-secret diversification bytes that bind the
// credential vault to one computer.
//
// A stable platform identifier is preferred (the Windows MachineGuid, the
// systemd/dbus machine-id, the BSD/macOS kernel host UUID). When none is
// available the bytes fall back to hostname, logical CPU count and OS version.
// None of this is secret.
package machine

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Source yields diversification bytes.
type Source interface {
	Diversification() []byte
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []byte

// Diversification calls f.
func (f SourceFunc) Diversification() []byte { return f() }

// Static is a fixed Source, mostly for tests.
type Static []byte

// Diversification returns the bytes as-is.
func (s Static) Diversification() []byte { return []byte(s) }

// Local is the Source for the current machine.
var Local Source = SourceFunc(Diversification)

// Diversification returns the platform id when there is one, else the fallback.
func Diversification() []byte {
	if id := strings.TrimSpace(platformID()); id != "" {
		return []byte(id)
	}
	return []byte(Fallback())
}

// Fallback composes hostname, logical processor count and OS version.
func Fallback() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "|" + strconv.Itoa(runtime.NumCPU()) + "|" + osVersion()
}
