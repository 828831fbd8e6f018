// Package devicetest provides in-memory images and fault injection for tests
// of code that works on block devices.
package devicetest

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// ImagePath is where NewImage places the image
const ImagePath = "/images/minix.img"

// NewImage creates a zeroed image of the given number of blocks on fs and
// opens it
func NewImage(t testing.TB, fs afero.Fs, blocks int, writable bool) *device.BlockDevice {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, ImagePath, make([]byte, blocks*types.BlockSize), 0644))
	return Open(t, fs, writable)
}

// Open opens the image created by NewImage
func Open(t testing.TB, fs afero.Fs, writable bool) *device.BlockDevice {
	t.Helper()
	logger, _ := test.NewNullLogger()
	dev, err := device.Open(fs, ImagePath, writable, logger)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

// ReadImage returns the image contents
func ReadImage(t testing.TB, fs afero.Fs) []byte {
	t.Helper()
	data, err := afero.ReadFile(fs, ImagePath)
	require.NoError(t, err)
	return data
}

// FaultDevice fails every read that touches one of the Bad blocks
type FaultDevice struct {
	interfaces.BlockDevice
	Bad map[uint32]bool
}

var _ interfaces.BlockDevice = (*FaultDevice)(nil)

// NewFaultDevice wraps dev so that reads of the given blocks fail
func NewFaultDevice(dev interfaces.BlockDevice, bad ...uint32) *FaultDevice {
	f := &FaultDevice{BlockDevice: dev, Bad: make(map[uint32]bool)}
	for _, b := range bad {
		f.Bad[b] = true
	}
	return f
}

func (f *FaultDevice) firstBad(off int64, n int) (uint32, bool) {
	if n <= 0 {
		return 0, false
	}
	first := uint32(off / types.BlockSize)
	last := uint32((off + int64(n) - 1) / types.BlockSize)
	for b := first; b <= last; b++ {
		if f.Bad[b] {
			return b, true
		}
	}
	return 0, false
}

// ReadAt fails with a short read up to the first bad block
func (f *FaultDevice) ReadAt(p []byte, off int64) (int, error) {
	b, bad := f.firstBad(off, len(p))
	if !bad {
		return f.BlockDevice.ReadAt(p, off)
	}
	good := int(int64(b)*types.BlockSize - off)
	if good < 0 {
		good = 0
	}
	n, _ := f.BlockDevice.ReadAt(p[:good], off)
	return n, fmt.Errorf("injected read error at block %d: %w", b, io.ErrUnexpectedEOF)
}

// ReadBlock fails for bad blocks with a zeroed buffer
func (f *FaultDevice) ReadBlock(n uint32) ([]byte, error) {
	if f.Bad[n] && n != 0 {
		return make([]byte, types.BlockSize), fmt.Errorf("injected read error at block %d", n)
	}
	return f.BlockDevice.ReadBlock(n)
}

// ReadBlocks returns the number of blocks before the first bad one
func (f *FaultDevice) ReadBlocks(start uint32, count int) (int, error) {
	for i := 0; i < count; i++ {
		if f.Bad[start+uint32(i)] {
			return i, fmt.Errorf("injected read error at block %d", start+uint32(i))
		}
	}
	return f.BlockDevice.ReadBlocks(start, count)
}
