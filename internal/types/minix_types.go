// Package types implements the on-disk data structures of the Minix file system
// (versions 1, 2 and 3) as read and written by the Linux kernel driver.
package types

import "encoding/binary"

// Block and map geometry shared by every supported revision.
const (
	// BlockSize is the only supported block (and zone) size.
	BlockSize = 1024

	// BitsPerBlock is the number of allocation bits held by one bitmap block.
	BitsPerBlock = BlockSize << 3

	// SuperblockOffset is the byte offset of the superblock (block 1).
	SuperblockOffset = BlockSize

	// BootBlockSize is the number of bytes cleared at the start of the device
	// when a file system is built.
	BootBlockSize = 512

	// RootIno is the inode number of the root directory.
	RootIno = 1

	// BadBlocksIno is the inode reserved for the bad blocks pseudo-file.
	BadBlocksIno = 2

	// MaxInodes is the largest inode count representable by v1/v2 superblocks.
	MaxInodes = 65535

	// MaxZmapBlocks caps the zone bitmap size accepted by the builder.
	MaxZmapBlocks = 64

	// MinBlocks is the smallest file system the builder will create.
	MinBlocks = 10
)

// Superblock magic numbers. Each v1/v2 value also appears byte-swapped when
// the file system was written on a host of the opposite endianness.
const (
	MagicV1       uint16 = 0x137F // v1, 14 character names
	MagicV1Name30 uint16 = 0x138F // v1, 30 character names
	MagicV2       uint16 = 0x2468 // v2, 14 character names
	MagicV2Name30 uint16 = 0x2478 // v2, 30 character names
	MagicV3       uint16 = 0x4D5A // v3, 60 character names
)

// Superblock state flags (v1 and v2 only).
const (
	StateValid uint16 = 0x0001
	StateError uint16 = 0x0002
)

// Byte offsets inside the v1/v2 superblock.
const (
	SbV1NinodesOffset       = 0
	SbV1NzonesOffset        = 2
	SbV1ImapBlocksOffset    = 4
	SbV1ZmapBlocksOffset    = 6
	SbV1FirstDataZoneOffset = 8
	SbV1LogZoneSizeOffset   = 10
	SbV1MaxSizeOffset       = 12
	SbV1MagicOffset         = 16
	SbV1StateOffset         = 18
	SbV1ZonesOffset         = 20
	SbV1Size                = 24
)

// Byte offsets inside the v3 superblock.
const (
	SbV3NinodesOffset       = 0
	SbV3ImapBlocksOffset    = 6
	SbV3ZmapBlocksOffset    = 8
	SbV3FirstDataZoneOffset = 10
	SbV3LogZoneSizeOffset   = 12
	SbV3MaxSizeOffset       = 16
	SbV3ZonesOffset         = 20
	SbV3MagicOffset         = 24
	SbV3BlockSizeOffset     = 28
	SbV3DiskVersionOffset   = 30
	SbV3Size                = 32
)

// Maximum file sizes written by the builder.
const (
	MaxSizeV1 uint32 = (7 + 512 + 512*512) * BlockSize
	MaxSizeV2 uint32 = 0x7FFFFFFF
)

// Inode mode bits.
const (
	ModeTypeMask uint16 = 0170000
	ModeSocket   uint16 = 0140000
	ModeSymlink  uint16 = 0120000
	ModeRegular  uint16 = 0100000
	ModeBlock    uint16 = 0060000
	ModeDir      uint16 = 0040000
	ModeChar     uint16 = 0020000
	ModeFifo     uint16 = 0010000
	ModePerm     uint16 = 0000777
)

// Version identifies an on-disk format revision.
type Version int

const (
	VersionUnknown Version = 0
	V1             Version = 1
	V2             Version = 2
	V3             Version = 3
)

// String returns the conventional name of the revision.
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return "unknown"
	}
}

// FormatTrait describes how a revision lays out inodes and zone pointers.
// All zone mapping and chain building is driven by these values rather than
// by per-version code paths.
type FormatTrait struct {
	// Width in bytes of a zone pointer stored in an indirect block.
	PointerWidth int
	// Number of zone pointers held by one indirect block.
	FanOut uint32
	// Number of direct zone pointers in an inode.
	DirectZones int
	// Number of indirection levels (2 for v1, 3 for v2/v3).
	IndirectLevels int
	// Size in bytes of an on-disk inode.
	InodeSize int
	// Width in bytes of the inode number in a directory entry.
	DirInoWidth int
}

// InodesPerBlock returns the number of inodes stored in one block.
func (t FormatTrait) InodesPerBlock() uint32 {
	return uint32(BlockSize / t.InodeSize)
}

// ZoneSlots returns the number of zone pointers stored in an inode.
func (t FormatTrait) ZoneSlots() int {
	return t.DirectZones + t.IndirectLevels
}

var (
	traitV1 = FormatTrait{PointerWidth: 2, FanOut: BlockSize / 2, DirectZones: 7, IndirectLevels: 2, InodeSize: 32, DirInoWidth: 2}
	traitV2 = FormatTrait{PointerWidth: 4, FanOut: BlockSize / 4, DirectZones: 7, IndirectLevels: 3, InodeSize: 64, DirInoWidth: 2}
	traitV3 = FormatTrait{PointerWidth: 4, FanOut: BlockSize / 4, DirectZones: 7, IndirectLevels: 3, InodeSize: 64, DirInoWidth: 4}
)

// Trait returns the layout description for the revision.
func (v Version) Trait() FormatTrait {
	switch v {
	case V1:
		return traitV1
	case V3:
		return traitV3
	default:
		return traitV2
	}
}

// MagicFor returns the magic number for a revision and name length.
func MagicFor(v Version, nameLen int) (uint16, bool) {
	switch {
	case v == V1 && nameLen == 14:
		return MagicV1, true
	case v == V1 && nameLen == 30:
		return MagicV1Name30, true
	case v == V2 && nameLen == 14:
		return MagicV2, true
	case v == V2 && nameLen == 30:
		return MagicV2Name30, true
	case v == V3 && nameLen == 60:
		return MagicV3, true
	}
	return 0, false
}

// Geometry is the version-neutral view of a decoded superblock. Code outside
// the superblock parser works exclusively with these fields.
type Geometry struct {
	Version   Version
	Magic     uint16
	ByteOrder binary.ByteOrder
	// Swapped is set when the superblock was written in big-endian order.
	Swapped bool

	NameLen      int
	DirEntrySize int

	Inodes        uint32
	Zones         uint32
	ImapBlocks    uint32
	ZmapBlocks    uint32
	FirstDataZone uint32
	LogZoneSize   uint16
	MaxSize       uint32
	State         uint16

	// v3 only.
	BlockSize   uint16
	DiskVersion uint8
}

// Trait returns the layout description for the geometry's revision.
func (g *Geometry) Trait() FormatTrait {
	return g.Version.Trait()
}

// InodeBlocks returns the number of blocks occupied by the inode table.
func (g *Geometry) InodeBlocks() uint32 {
	per := g.Trait().InodesPerBlock()
	return (g.Inodes + per - 1) / per
}

// InodeTableSize returns the inode table size in bytes.
func (g *Geometry) InodeTableSize() int {
	return int(g.InodeBlocks()) * BlockSize
}

// ImapStart returns the first block of the inode bitmap.
func (g *Geometry) ImapStart() uint32 {
	return 2
}

// ZmapStart returns the first block of the zone bitmap.
func (g *Geometry) ZmapStart() uint32 {
	return 2 + g.ImapBlocks
}

// InodeTableStart returns the first block of the inode table.
func (g *Geometry) InodeTableStart() uint32 {
	return 2 + g.ImapBlocks + g.ZmapBlocks
}

// NormFirstZone returns the first data zone implied by the layout:
// boot block, superblock, both bitmaps and the inode table.
func (g *Geometry) NormFirstZone() uint32 {
	return 2 + g.ImapBlocks + g.ZmapBlocks + g.InodeBlocks()
}

// IsValidZone reports whether z lies in [FirstDataZone, Zones).
func (g *Geometry) IsValidZone(z uint32) bool {
	return z >= g.FirstDataZone && z < g.Zones
}

// HasState reports whether the revision tracks the valid/error state flags.
func (g *Geometry) HasState() bool {
	return g.Version != V3
}

// IsClean reports whether the superblock state marks a cleanly unmounted
// file system without recorded errors.
func (g *Geometry) IsClean() bool {
	return g.HasState() && g.State&StateError == 0 && g.State&StateValid != 0
}

// Inode is the version-neutral in-memory form of an on-disk inode. v1 inodes
// carry a single timestamp which is mirrored into all three time fields.
type Inode struct {
	Mode   uint16
	Uid    uint16
	Gid    uint16
	Nlinks uint16
	Size   uint32
	Atime  uint32
	Mtime  uint32
	Ctime  uint32
	Zones  [10]uint32
}

// FileType returns the type bits of the mode.
func (i *Inode) FileType() uint16 {
	return i.Mode & ModeTypeMask
}

func (i *Inode) IsDir() bool     { return i.FileType() == ModeDir }
func (i *Inode) IsRegular() bool { return i.FileType() == ModeRegular }
func (i *Inode) IsSymlink() bool { return i.FileType() == ModeSymlink }
func (i *Inode) IsChar() bool    { return i.FileType() == ModeChar }
func (i *Inode) IsBlock() bool   { return i.FileType() == ModeBlock }
func (i *Inode) IsSocket() bool  { return i.FileType() == ModeSocket }
func (i *Inode) IsFifo() bool    { return i.FileType() == ModeFifo }

// HasZones reports whether the inode's zone pointers reference data blocks.
// Device nodes, sockets and fifos reuse the first slot for other purposes.
func (i *Inode) HasZones() bool {
	return i.IsDir() || i.IsRegular() || i.IsSymlink()
}

// MaxNlinks returns the largest link count the revision can store.
func (v Version) MaxNlinks() uint32 {
	if v == V1 {
		return 0xFF
	}
	return 0xFFFF
}

// MaxZone returns the largest zone number a pointer of the revision can hold.
func (v Version) MaxZone() uint32 {
	if v == V1 {
		return 0xFFFF
	}
	return 0xFFFFFFFF
}
