//go:build !windows

package sysinfo

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// unameKernelVersion falls back to a raw uname(2) call for the kernel
// release string when gopsutil's higher-level host.Info fails (e.g. in
// a minimal or sandboxed environment missing the files it reads).
func unameKernelVersion() (string, error) {
	var buf unix.Utsname
	if err := unix.Uname(&buf); err != nil {
		return "", err
	}
	return cString(buf.Release[:]), nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
