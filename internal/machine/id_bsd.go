//go:build darwin || freebsd || netbsd || openbsd

package machine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func platformID() string {
	name := "kern.hostuuid"
	if runtime.GOOS == "darwin" {
		name = "kern.uuid"
	}
	id, err := unix.Sysctl(name)
	if err != nil {
		return ""
	}
	return id
}
