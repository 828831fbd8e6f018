// Package builder creates empty Minix file systems: it lays out the bitmaps
// and inode table for a device, optionally records unreadable blocks in the
// bad blocks inode, and writes a root directory.
package builder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Layout errors.
var (
	ErrTooFewBlocks      = errors.New("file system needs at least 10 blocks")
	ErrFilesystemTooBig  = errors.New("filesystem too big")
	ErrNoDataZones       = errors.New("no room left for data zones")
	ErrUnsupportedFormat = errors.New("unsupported version and name length combination")
)

// zmapIterations bounds the fixed-point search for the zone bitmap size
const zmapIterations = 8

// Options describes the file system to build
type Options struct {
	Version types.Version
	// NameLen is 14 or 30 for v1/v2 and 60 for v3.
	NameLen int
	// Blocks is the size in blocks. Zero takes the device size.
	Blocks uint64
	// Inodes requests an inode count. Zero derives one from Blocks.
	Inodes uint64

	// CheckBlocks reads the whole device looking for bad blocks.
	CheckBlocks bool
	// ChunkBlocks is the read size of the bad block scan.
	ChunkBlocks int
	// BadBlocksFile names a file listing bad block numbers.
	BadBlocksFile string
	// Fs is where BadBlocksFile is read from. Defaults to the OS.
	Fs afero.Fs

	Output io.Writer
	Logger logrus.FieldLogger
	// Now stamps the root and bad blocks inodes. Defaults to time.Now.
	Now func() time.Time
	// Uid and Gid own the root directory.
	Uid, Gid uint16
}

// defaultInodes picks one inode per 3 blocks, thinning out on large devices
func defaultInodes(blocks uint64) uint64 {
	switch {
	case blocks > 2048*1024:
		return blocks / 16
	case blocks > 512*1024:
		return blocks / 8
	default:
		return blocks / 3
	}
}

func divUp(n, d uint64) uint64 {
	return (n + d - 1) / d
}

// ComputeGeometry lays out a file system of opts.Blocks blocks
func ComputeGeometry(opts Options) (*types.Geometry, error) {
	magic, ok := types.MagicFor(opts.Version, opts.NameLen)
	if !ok {
		return nil, fmt.Errorf("%w: %s with %d character names", ErrUnsupportedFormat, opts.Version, opts.NameLen)
	}

	blocks := opts.Blocks
	if blocks < types.MinBlocks {
		return nil, ErrTooFewBlocks
	}
	if limit := uint64(opts.Version.MaxZone()); blocks > limit {
		blocks = limit
	}

	trait := opts.Version.Trait()
	g := &types.Geometry{
		Version:      opts.Version,
		Magic:        magic,
		ByteOrder:    binary.LittleEndian,
		NameLen:      opts.NameLen,
		DirEntrySize: opts.NameLen + trait.DirInoWidth,
		Zones:        uint32(blocks),
	}

	switch opts.Version {
	case types.V1:
		g.MaxSize = types.MaxSizeV1
	case types.V3:
		g.MaxSize = types.MaxSizeV2
		g.BlockSize = types.BlockSize
	default:
		g.MaxSize = types.MaxSizeV2
	}

	inodes := opts.Inodes
	if inodes == 0 {
		inodes = defaultInodes(blocks)
	}
	// Keep the last inode bitmap block from ending up with a single free bit.
	if inodes&(types.BitsPerBlock-1) > types.BitsPerBlock-4 {
		inodes -= 5
	}
	per := uint64(trait.InodesPerBlock())
	inodes = divUp(inodes, per) * per
	if inodes > types.MaxInodes {
		inodes = types.MaxInodes
	}
	g.Inodes = uint32(inodes)
	g.ImapBlocks = uint32(divUp(inodes+1, types.BitsPerBlock))

	zmap, err := zoneMapBlocks(g, blocks)
	if err != nil {
		return nil, err
	}
	if zmap > types.MaxZmapBlocks {
		return nil, fmt.Errorf("%w: %d zone bitmap blocks", ErrFilesystemTooBig, zmap)
	}
	g.ZmapBlocks = uint32(zmap)
	g.FirstDataZone = g.NormFirstZone()
	if uint64(g.FirstDataZone) >= blocks {
		return nil, ErrNoDataZones
	}
	return g, nil
}

// zoneMapBlocks sizes the zone bitmap. The first data zone depends on the
// bitmap size, so the size is found by iteration and checked for coverage
// afterwards.
func zoneMapBlocks(g *types.Geometry, blocks uint64) (uint64, error) {
	needed := func(zmap uint64) (uint64, bool) {
		g.ZmapBlocks = uint32(zmap)
		norm := uint64(g.NormFirstZone())
		if norm >= blocks {
			return 0, false
		}
		return divUp(blocks-norm+1, types.BitsPerBlock), true
	}

	var zmap uint64
	for i := 0; i < zmapIterations; i++ {
		want, ok := needed(zmap)
		if !ok {
			return 0, ErrNoDataZones
		}
		if want == zmap {
			return zmap, nil
		}
		zmap = want
	}

	fixed := uint64(1 + g.ImapBlocks + g.InodeBlocks())
	if fixed >= blocks {
		return 0, ErrNoDataZones
	}
	zmap = divUp(blocks-fixed, types.BitsPerBlock+1)
	for {
		want, ok := needed(zmap)
		if !ok {
			return 0, ErrNoDataZones
		}
		if want <= zmap {
			return zmap, nil
		}
		zmap++
	}
}
