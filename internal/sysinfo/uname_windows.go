//go:build windows

package sysinfo

import "errors"

// unameKernelVersion has no POSIX uname(2) equivalent on Windows;
// host.Info is the only source there, so this fallback always fails.
func unameKernelVersion() (string, error) {
	return "", errors.New("uname is not available on windows")
}
