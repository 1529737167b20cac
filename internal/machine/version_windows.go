//go:build windows

package machine

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func osVersion() string {
	v := windows.RtlGetVersion()
	return fmt.Sprintf("Microsoft Windows NT %d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
