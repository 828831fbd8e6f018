//go:build !linux

package device

import (
	"errors"

	"github.com/spf13/afero"
)

func blockDeviceSize(file afero.File) (int64, error) {
	return 0, errors.New("block device size query not supported on this platform")
}

// SameDevice always reports false where device numbers are unavailable
func SameDevice(a, b string) bool {
	return false
}

// SyncAll is a no-op where a global sync is unavailable
func SyncAll(passes int) {}
