// File: internal/interfaces/superblock.go
package interfaces

import (
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// SuperblockReader provides methods for reading Minix superblock information
type SuperblockReader interface {
	// Version returns the on-disk format revision
	Version() types.Version

	// Geometry returns the version-neutral view of the superblock
	Geometry() *types.Geometry

	// Validate checks the geometry invariants required before any table is read
	Validate() error

	// IsClean reports whether the state flags mark a cleanly unmounted file system
	IsClean() bool
}

// InodeTable provides access to the in-memory inode table
type InodeTable interface {
	// Count returns the number of inodes in the table
	Count() uint32

	// Get decodes inode ino (1-based)
	Get(ino uint32) types.Inode

	// Put encodes inode ino (1-based) back into the table
	Put(ino uint32, inode types.Inode)

	// Bytes returns the raw table for writing back to disk
	Bytes() []byte
}
