package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// ErrReadOnly is returned by write operations on a device opened read-only
var ErrReadOnly = errors.New("device opened read-only")

// BlockDevice provides 1024-byte block access to a device or image file
type BlockDevice struct {
	fs       afero.Fs
	file     afero.File
	path     string
	readOnly bool
	isBlock  bool
	log      logrus.FieldLogger
	stats    *Statistics
}

var _ interfaces.BlockDevice = (*BlockDevice)(nil)

// Statistics tracks device access counters
type Statistics struct {
	BlocksRead    int64
	BlocksWritten int64
	ReadErrors    int64
	WriteErrors   int64
	mu            sync.RWMutex
}

// Snapshot returns a copy of the counters
func (s *Statistics) Snapshot() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		BlocksRead:    s.BlocksRead,
		BlocksWritten: s.BlocksWritten,
		ReadErrors:    s.ReadErrors,
		WriteErrors:   s.WriteErrors,
	}
}

func (s *Statistics) add(read, written, readErr, writeErr int64) {
	s.mu.Lock()
	s.BlocksRead += read
	s.BlocksWritten += written
	s.ReadErrors += readErr
	s.WriteErrors += writeErr
	s.mu.Unlock()
}

// Open opens path on fs. Read-only devices are opened O_RDONLY, writable ones
// O_RDWR; the file is never created.
func Open(fs afero.Fs, path string, writable bool, log logrus.FieldLogger) (*BlockDevice, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}

	file, err := fs.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat device %s: %w", path, err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	d := &BlockDevice{
		fs:       fs,
		file:     file,
		path:     path,
		readOnly: !writable,
		isBlock:  stat.Mode()&os.ModeDevice != 0 && stat.Mode()&os.ModeCharDevice == 0,
		log:      log.WithField("device", path),
		stats:    &Statistics{},
	}
	d.log.WithFields(logrus.Fields{"writable": writable, "block_device": d.isBlock}).Debug("opened device")
	return d, nil
}

// ReadAt reads len(p) bytes at byte offset off
func (d *BlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.file.ReadAt(p, off)
}

// WriteAt writes p at byte offset off
func (d *BlockDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.readOnly {
		return 0, ErrReadOnly
	}
	return d.file.WriteAt(p, off)
}

// ReadBlock reads block n. Block 0 is never read; it yields zeros. A failed
// or short read yields a zero-filled buffer along with the error.
func (d *BlockDevice) ReadBlock(n uint32) ([]byte, error) {
	buf := make([]byte, types.BlockSize)
	if n == 0 {
		return buf, nil
	}

	got, err := d.file.ReadAt(buf, int64(n)*types.BlockSize)
	if got == types.BlockSize {
		d.stats.add(1, 0, 0, 0)
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	for i := range buf {
		buf[i] = 0
	}
	d.stats.add(0, 0, 1, 0)
	d.log.WithField("block", n).WithError(err).Debug("block read failed")
	return buf, fmt.Errorf("failed to read block %d: %w", n, err)
}

// ReadBlocks reads count blocks starting at start and returns the number of
// whole blocks read before the first failure. A chunk that does not read
// completely is retried block by block to find the failing block.
func (d *BlockDevice) ReadBlocks(start uint32, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	buf := make([]byte, count*types.BlockSize)
	got, err := d.file.ReadAt(buf, int64(start)*types.BlockSize)
	if got == len(buf) {
		d.stats.add(int64(count), 0, 0, 0)
		return count, nil
	}

	single := make([]byte, types.BlockSize)
	for i := 0; i < count; i++ {
		n, rerr := d.file.ReadAt(single, int64(start+uint32(i))*types.BlockSize)
		if n != types.BlockSize {
			if rerr == nil || errors.Is(rerr, io.EOF) {
				rerr = io.ErrUnexpectedEOF
			}
			d.stats.add(int64(i), 0, 1, 0)
			return i, fmt.Errorf("failed to read block %d: %w", start+uint32(i), rerr)
		}
	}
	d.stats.add(int64(count), 0, 0, 0)
	return count, err
}

// WriteBlock writes block n. Writes to block 0 are ignored.
func (d *BlockDevice) WriteBlock(n uint32, data []byte) error {
	if n == 0 {
		return nil
	}
	if len(data) != types.BlockSize {
		return fmt.Errorf("block write of %d bytes, want %d", len(data), types.BlockSize)
	}
	if _, err := d.WriteAt(data, int64(n)*types.BlockSize); err != nil {
		d.stats.add(0, 0, 0, 1)
		return fmt.Errorf("failed to write block %d: %w", n, err)
	}
	d.stats.add(0, 1, 0, 0)
	return nil
}

// Sync flushes the device
func (d *BlockDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	return d.file.Sync()
}

// Close closes the device
func (d *BlockDevice) Close() error {
	return d.file.Close()
}

// IsReadOnly reports whether the device was opened without write access
func (d *BlockDevice) IsReadOnly() bool {
	return d.readOnly
}

// DevicePath returns the path the device was opened from
func (d *BlockDevice) DevicePath() string {
	return d.path
}

// IsBlockDevice reports whether the device is a block special file
func (d *BlockDevice) IsBlockDevice() bool {
	return d.isBlock
}

// Stats returns the device access counters
func (d *BlockDevice) Stats() Statistics {
	return d.stats.Snapshot()
}

// Size returns the device size in bytes. Block devices are asked through the
// kernel; everything else reports its file size, falling back to probing
// when that is zero.
func (d *BlockDevice) Size() (int64, error) {
	if d.isBlock {
		size, err := blockDeviceSize(d.file)
		if err == nil {
			return size, nil
		}
		d.log.WithError(err).Debug("size ioctl failed, probing")
	}

	stat, err := d.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat device: %w", err)
	}
	if stat.Size() > 0 {
		return stat.Size(), nil
	}
	return CountBlocks(d) * types.BlockSize, nil
}

// CountBlocks finds the number of readable blocks by binary search, for
// devices that report no size.
func CountBlocks(r io.ReaderAt) int64 {
	probe := make([]byte, 1)
	readable := func(block int64) bool {
		n, _ := r.ReadAt(probe, block*types.BlockSize)
		return n == 1
	}

	var low, high int64 = 0, 1
	for readable(high) {
		low = high
		high *= 2
		if high <= 0 || high > 1<<40 {
			break
		}
	}
	for low < high-1 {
		mid := (low + high) / 2
		if readable(mid) {
			low = mid
		} else {
			high = mid
		}
	}
	if !readable(low) {
		return 0
	}
	return low + 1
}
