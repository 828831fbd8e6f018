package superblock

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Errors returned while decoding or validating a superblock.
var (
	ErrBadMagic            = errors.New("bad magic number in super-block")
	ErrUnsupportedZoneSize = errors.New("only 1k blocks/zones supported")
	ErrBadInodeCount       = errors.New("bad s_ninodes field in super-block")
	ErrBadImapBlocks       = errors.New("bad s_imap_blocks field in super-block")
	ErrBadFirstDataZone    = errors.New("bad s_firstdatazone field in super-block")
	ErrBadZmapBlocks       = errors.New("bad s_zmap_blocks field in super-block")
	ErrUnsupportedBlock    = errors.New("only 1024 byte blocks supported")
)

// superblockReader implements the SuperblockReader interface
type superblockReader struct {
	geometry *types.Geometry
	data     []byte
}

var _ interfaces.SuperblockReader = (*superblockReader)(nil)

// NewSuperblockReader decodes the superblock held in data (the contents of block 1).
// Both byte orders are recognised; the geometry records which one was found.
func NewSuperblockReader(data []byte) (interfaces.SuperblockReader, error) {
	if len(data) < types.SbV3Size {
		return nil, fmt.Errorf("data too small for minix superblock: %d bytes", len(data))
	}

	version, order, ok := detectVersion(data)
	if !ok {
		return nil, ErrBadMagic
	}

	geometry, err := parseSuperblock(data, version, order)
	if err != nil {
		return nil, fmt.Errorf("failed to parse minix superblock: %w", err)
	}

	return &superblockReader{
		geometry: geometry,
		data:     data,
	}, nil
}

// detectVersion matches the magic number in native little-endian order first
// and then byte-swapped.
func detectVersion(data []byte) (types.Version, binary.ByteOrder, bool) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint16(data[types.SbV1MagicOffset:]) {
		case types.MagicV1, types.MagicV1Name30:
			return types.V1, order, true
		case types.MagicV2, types.MagicV2Name30:
			return types.V2, order, true
		}
		if order.Uint16(data[types.SbV3MagicOffset:]) == types.MagicV3 {
			return types.V3, order, true
		}
	}
	return types.VersionUnknown, nil, false
}

// parseSuperblock converts the raw superblock into a Geometry
func parseSuperblock(data []byte, version types.Version, order binary.ByteOrder) (*types.Geometry, error) {
	g := &types.Geometry{
		Version:   version,
		ByteOrder: order,
		Swapped:   order == binary.BigEndian,
	}

	switch version {
	case types.V1, types.V2:
		g.Inodes = uint32(order.Uint16(data[types.SbV1NinodesOffset:]))
		g.ImapBlocks = uint32(order.Uint16(data[types.SbV1ImapBlocksOffset:]))
		g.ZmapBlocks = uint32(order.Uint16(data[types.SbV1ZmapBlocksOffset:]))
		g.FirstDataZone = uint32(order.Uint16(data[types.SbV1FirstDataZoneOffset:]))
		g.LogZoneSize = order.Uint16(data[types.SbV1LogZoneSizeOffset:])
		g.MaxSize = order.Uint32(data[types.SbV1MaxSizeOffset:])
		g.Magic = order.Uint16(data[types.SbV1MagicOffset:])
		g.State = order.Uint16(data[types.SbV1StateOffset:])
		if version == types.V1 {
			g.Zones = uint32(order.Uint16(data[types.SbV1NzonesOffset:]))
		} else {
			g.Zones = order.Uint32(data[types.SbV1ZonesOffset:])
		}
		if g.Magic == types.MagicV1 || g.Magic == types.MagicV2 {
			g.NameLen = 14
		} else {
			g.NameLen = 30
		}
	case types.V3:
		g.Inodes = order.Uint32(data[types.SbV3NinodesOffset:])
		g.ImapBlocks = uint32(order.Uint16(data[types.SbV3ImapBlocksOffset:]))
		g.ZmapBlocks = uint32(order.Uint16(data[types.SbV3ZmapBlocksOffset:]))
		g.FirstDataZone = uint32(order.Uint16(data[types.SbV3FirstDataZoneOffset:]))
		g.LogZoneSize = order.Uint16(data[types.SbV3LogZoneSizeOffset:])
		g.MaxSize = order.Uint32(data[types.SbV3MaxSizeOffset:])
		g.Zones = order.Uint32(data[types.SbV3ZonesOffset:])
		g.Magic = order.Uint16(data[types.SbV3MagicOffset:])
		g.BlockSize = order.Uint16(data[types.SbV3BlockSizeOffset:])
		g.DiskVersion = data[types.SbV3DiskVersionOffset]
		g.NameLen = 60
	default:
		return nil, ErrBadMagic
	}

	g.DirEntrySize = g.NameLen + g.Trait().DirInoWidth
	return g, nil
}

// Version returns the on-disk format revision
func (sr *superblockReader) Version() types.Version {
	return sr.geometry.Version
}

// Geometry returns the decoded geometry
func (sr *superblockReader) Geometry() *types.Geometry {
	return sr.geometry
}

// IsClean reports whether the file system was cleanly unmounted
func (sr *superblockReader) IsClean() bool {
	return sr.geometry.IsClean()
}

// Validate checks that the bitmaps are large enough for the counts they
// describe and that the data area lies inside the device.
func (sr *superblockReader) Validate() error {
	return ValidateGeometry(sr.geometry)
}

// ValidateGeometry applies the superblock plausibility checks to g
func ValidateGeometry(g *types.Geometry) error {
	if g.LogZoneSize != 0 {
		return ErrUnsupportedZoneSize
	}
	if g.Version == types.V3 && g.BlockSize != 0 && g.BlockSize != types.BlockSize {
		return fmt.Errorf("%w: got %d", ErrUnsupportedBlock, g.BlockSize)
	}
	if g.Inodes == 0 || g.Inodes == ^uint32(0) {
		return ErrBadInodeCount
	}
	if uint64(g.ImapBlocks)*types.BitsPerBlock < uint64(g.Inodes)+1 {
		return ErrBadImapBlocks
	}
	if g.FirstDataZone > g.Zones {
		return ErrBadFirstDataZone
	}
	if uint64(g.ZmapBlocks)*types.BitsPerBlock < uint64(g.Zones-g.FirstDataZone)+1 {
		return ErrBadZmapBlocks
	}
	return nil
}

// Encode writes g into block, which must hold at least the superblock.
// Bytes not covered by the layout are left untouched.
func Encode(g *types.Geometry, block []byte) error {
	if len(block) < types.SbV3Size {
		return fmt.Errorf("data too small for minix superblock: %d bytes", len(block))
	}
	order := g.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	switch g.Version {
	case types.V1, types.V2:
		order.PutUint16(block[types.SbV1NinodesOffset:], uint16(g.Inodes))
		order.PutUint16(block[types.SbV1ImapBlocksOffset:], uint16(g.ImapBlocks))
		order.PutUint16(block[types.SbV1ZmapBlocksOffset:], uint16(g.ZmapBlocks))
		order.PutUint16(block[types.SbV1FirstDataZoneOffset:], uint16(g.FirstDataZone))
		order.PutUint16(block[types.SbV1LogZoneSizeOffset:], g.LogZoneSize)
		order.PutUint32(block[types.SbV1MaxSizeOffset:], g.MaxSize)
		order.PutUint16(block[types.SbV1MagicOffset:], g.Magic)
		order.PutUint16(block[types.SbV1StateOffset:], g.State)
		if g.Version == types.V1 {
			order.PutUint16(block[types.SbV1NzonesOffset:], uint16(g.Zones))
		} else {
			order.PutUint16(block[types.SbV1NzonesOffset:], 0)
			order.PutUint32(block[types.SbV1ZonesOffset:], g.Zones)
		}
	case types.V3:
		order.PutUint32(block[types.SbV3NinodesOffset:], g.Inodes)
		order.PutUint16(block[types.SbV3ImapBlocksOffset:], uint16(g.ImapBlocks))
		order.PutUint16(block[types.SbV3ZmapBlocksOffset:], uint16(g.ZmapBlocks))
		order.PutUint16(block[types.SbV3FirstDataZoneOffset:], uint16(g.FirstDataZone))
		order.PutUint16(block[types.SbV3LogZoneSizeOffset:], g.LogZoneSize)
		order.PutUint32(block[types.SbV3MaxSizeOffset:], g.MaxSize)
		order.PutUint32(block[types.SbV3ZonesOffset:], g.Zones)
		order.PutUint16(block[types.SbV3MagicOffset:], g.Magic)
		order.PutUint16(block[types.SbV3BlockSizeOffset:], g.BlockSize)
		block[types.SbV3DiskVersionOffset] = g.DiskVersion
	default:
		return fmt.Errorf("cannot encode superblock for version %s", g.Version)
	}
	return nil
}
