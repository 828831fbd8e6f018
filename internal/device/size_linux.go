//go:build linux

package device

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

type fdFile interface {
	Fd() uintptr
}

// blockDeviceSize asks the kernel for the size of a block device in bytes
func blockDeviceSize(file afero.File) (int64, error) {
	f, ok := file.(fdFile)
	if !ok {
		return 0, errors.New("device has no file descriptor")
	}

	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("BLKGETSIZE64 ioctl failed: %w", errno)
	}
	return int64(size), nil
}

// SameDevice reports whether a and b name the same special file, comparing
// device numbers so that differently named nodes still match.
func SameDevice(a, b string) bool {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return false
	}
	if err := unix.Stat(b, &sb); err != nil {
		return false
	}
	if sa.Mode&unix.S_IFMT != unix.S_IFBLK || sb.Mode&unix.S_IFMT != unix.S_IFBLK {
		return false
	}
	return sa.Rdev == sb.Rdev
}

// SyncAll flushes all file system buffers the given number of times
func SyncAll(passes int) {
	for i := 0; i < passes; i++ {
		unix.Sync()
	}
}
