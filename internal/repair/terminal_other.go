//go:build !linux

package repair

import "os"

// Terminal is unavailable on this platform
type Terminal struct{}

// IsTerminal always reports false on this platform
func IsTerminal(fd int) bool {
	return false
}

// AcquireTerminal always fails on this platform
func AcquireTerminal(in, out *os.File) (*Terminal, error) {
	return nil, ErrNeedTerminal
}

// Restore does nothing
func (t *Terminal) Restore() {}
