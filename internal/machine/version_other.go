//go:build !unix && !windows

package machine

import "runtime"

func osVersion() string { return runtime.GOOS }
