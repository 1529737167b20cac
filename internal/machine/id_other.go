//go:build !linux && !windows && !darwin && !freebsd && !netbsd && !openbsd

package machine

func platformID() string { return "" }
