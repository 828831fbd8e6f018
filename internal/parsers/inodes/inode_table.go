package inodes

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// inodeTable implements the InodeTable interface over the raw table bytes.
// Inodes are decoded on every Get and encoded on every Put, so the byte slice
// is always the authoritative copy written back to disk.
type inodeTable struct {
	data    []byte
	version types.Version
	trait   types.FormatTrait
	endian  binary.ByteOrder
	count   uint32
}

var _ interfaces.InodeTable = (*inodeTable)(nil)

// NewInodeTable wraps the inode table read from disk
func NewInodeTable(data []byte, g *types.Geometry) (interfaces.InodeTable, error) {
	trait := g.Trait()
	need := int(g.Inodes) * trait.InodeSize
	if len(data) < need {
		return nil, fmt.Errorf("data too small for inode table: %d bytes, need %d", len(data), need)
	}

	endian := g.ByteOrder
	if endian == nil {
		endian = binary.LittleEndian
	}

	return &inodeTable{
		data:    data,
		version: g.Version,
		trait:   trait,
		endian:  endian,
		count:   g.Inodes,
	}, nil
}

// Count returns the number of inodes in the table
func (t *inodeTable) Count() uint32 {
	return t.count
}

// Get decodes inode ino. Out of range numbers yield a zero inode.
func (t *inodeTable) Get(ino uint32) types.Inode {
	if ino == 0 || ino > t.count {
		return types.Inode{}
	}
	off := int(ino-1) * t.trait.InodeSize
	return DecodeInode(t.data[off:off+t.trait.InodeSize], t.version, t.endian)
}

// Put encodes inode ino. Out of range numbers are ignored.
func (t *inodeTable) Put(ino uint32, inode types.Inode) {
	if ino == 0 || ino > t.count {
		return
	}
	off := int(ino-1) * t.trait.InodeSize
	EncodeInode(t.data[off:off+t.trait.InodeSize], inode, t.version, t.endian)
}

// Bytes returns the raw table
func (t *inodeTable) Bytes() []byte {
	return t.data
}

// DecodeInode parses one on-disk inode
func DecodeInode(data []byte, version types.Version, endian binary.ByteOrder) types.Inode {
	var inode types.Inode

	if version == types.V1 {
		inode.Mode = endian.Uint16(data[0:2])
		inode.Uid = endian.Uint16(data[2:4])
		inode.Size = endian.Uint32(data[4:8])
		inode.Mtime = endian.Uint32(data[8:12])
		inode.Atime = inode.Mtime
		inode.Ctime = inode.Mtime
		inode.Gid = uint16(data[12])
		inode.Nlinks = uint16(data[13])
		for i := 0; i < version.Trait().ZoneSlots(); i++ {
			inode.Zones[i] = uint32(endian.Uint16(data[14+2*i:]))
		}
		return inode
	}

	inode.Mode = endian.Uint16(data[0:2])
	inode.Nlinks = endian.Uint16(data[2:4])
	inode.Uid = endian.Uint16(data[4:6])
	inode.Gid = endian.Uint16(data[6:8])
	inode.Size = endian.Uint32(data[8:12])
	inode.Atime = endian.Uint32(data[12:16])
	inode.Mtime = endian.Uint32(data[16:20])
	inode.Ctime = endian.Uint32(data[20:24])
	for i := 0; i < version.Trait().ZoneSlots(); i++ {
		inode.Zones[i] = endian.Uint32(data[24+4*i:])
	}
	return inode
}

// EncodeInode serialises inode into data. Values wider than the v1 fields
// are truncated.
func EncodeInode(data []byte, inode types.Inode, version types.Version, endian binary.ByteOrder) {
	if version == types.V1 {
		endian.PutUint16(data[0:2], inode.Mode)
		endian.PutUint16(data[2:4], inode.Uid)
		endian.PutUint32(data[4:8], inode.Size)
		endian.PutUint32(data[8:12], inode.Mtime)
		data[12] = uint8(inode.Gid)
		data[13] = uint8(inode.Nlinks)
		for i := 0; i < version.Trait().ZoneSlots(); i++ {
			endian.PutUint16(data[14+2*i:], uint16(inode.Zones[i]))
		}
		return
	}

	endian.PutUint16(data[0:2], inode.Mode)
	endian.PutUint16(data[2:4], inode.Nlinks)
	endian.PutUint16(data[4:6], inode.Uid)
	endian.PutUint16(data[6:8], inode.Gid)
	endian.PutUint32(data[8:12], inode.Size)
	endian.PutUint32(data[12:16], inode.Atime)
	endian.PutUint32(data[16:20], inode.Mtime)
	endian.PutUint32(data[20:24], inode.Ctime)
	for i := 0; i < version.Trait().ZoneSlots(); i++ {
		endian.PutUint32(data[24+4*i:], inode.Zones[i])
	}
}
