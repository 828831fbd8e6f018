// File: internal/interfaces/block_device.go
package interfaces

import "io"

// BlockDeviceReader provides methods for reading 1024-byte blocks
type BlockDeviceReader interface {
	io.ReaderAt

	// ReadBlock reads a single block. Block 0 yields a zeroed buffer without I/O.
	// On a failed or short read the returned buffer is zero-filled and the
	// error is non-nil.
	ReadBlock(n uint32) ([]byte, error)

	// ReadBlocks reads count consecutive blocks starting at start and returns
	// how many whole blocks were read before the first failure.
	ReadBlocks(start uint32, count int) (int, error)

	// Size returns the size of the device in bytes
	Size() (int64, error)
}

// BlockDeviceWriter provides methods for writing 1024-byte blocks
type BlockDeviceWriter interface {
	io.WriterAt

	// WriteBlock writes a single block. Writes to block 0 are ignored.
	WriteBlock(n uint32, data []byte) error

	// Sync flushes pending writes to stable storage
	Sync() error

	// IsReadOnly reports whether the device was opened without write access
	IsReadOnly() bool
}

// BlockDeviceInfo provides information about a block device
type BlockDeviceInfo interface {
	// DevicePath returns the path the device was opened from
	DevicePath() string

	// IsBlockDevice reports whether the path refers to a block special file
	IsBlockDevice() bool
}

// BlockDevice is a readable, writable block device
type BlockDevice interface {
	BlockDeviceReader
	BlockDeviceWriter
	BlockDeviceInfo
	io.Closer
}
