package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/bitmap"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/directory"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Write errors.
var (
	ErrClearBootSector = errors.New("unable to clear boot sector")
	ErrWriteSuperblock = errors.New("unable to write super-block")
	ErrWriteInodeMap   = errors.New("unable to write inode map")
	ErrWriteZoneMap    = errors.New("unable to write zone map")
	ErrWriteInodes     = errors.New("unable to write inodes")
	ErrDeviceSize      = errors.New("unable to determine device size")
)

// Result describes the file system written by Build
type Result struct {
	Geometry  *types.Geometry
	BadBlocks uint32
}

// Service builds one file system on one device
type Service struct {
	dev  interfaces.BlockDevice
	opts Options
	out  io.Writer
	log  logrus.FieldLogger

	geo   *types.Geometry
	maps  *bitmap.AllocationBitmap
	table interfaces.InodeTable
	good  *goodBlocks
}

// NewService prepares a build of dev
func NewService(dev interfaces.BlockDevice, opts Options) *Service {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		dev:  dev,
		opts: opts,
		out:  opts.Output,
		log:  opts.Logger.WithField("device", dev.DevicePath()),
	}
}

// Build lays out the file system and writes it to the device
func (s *Service) Build(ctx context.Context) (*Result, error) {
	if s.opts.Blocks == 0 {
		size, err := s.dev.Size()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceSize, err)
		}
		s.opts.Blocks = uint64(size) / types.BlockSize
	}

	if err := s.setupTables(); err != nil {
		return nil, err
	}

	var bad uint32
	var err error
	switch {
	case s.opts.CheckBlocks:
		bad, err = s.scanBadBlocks(ctx)
	case s.opts.BadBlocksFile != "":
		bad, err = s.readBadBlockList(s.opts.Fs, s.opts.BadBlocksFile)
	}
	if err != nil {
		return nil, err
	}
	s.reportBadBlocks(bad)

	if err := s.makeRootInode(bad > 0); err != nil {
		return nil, err
	}
	if err := s.makeBadInode(bad); err != nil {
		return nil, err
	}
	s.good.markAll()

	if err := s.writeTables(); err != nil {
		return nil, err
	}
	if err := s.dev.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync device: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"version":    s.geo.Version.String(),
		"inodes":     s.geo.Inodes,
		"zones":      s.geo.Zones,
		"bad_blocks": bad,
	}).Info("file system created")

	return &Result{Geometry: s.geo, BadBlocks: bad}, nil
}

// setupTables computes the layout, starts from fully allocated bitmaps and
// releases the data zones and every inode.
func (s *Service) setupTables() error {
	g, err := ComputeGeometry(s.opts)
	if err != nil {
		return err
	}
	s.geo = g

	s.maps = bitmap.NewFilledAllocationBitmap(g.ImapBlocks, g.ZmapBlocks, types.BlockSize, g.FirstDataZone)
	for z := g.FirstDataZone; z < g.Zones; z++ {
		s.maps.UnmarkZone(z)
	}
	for i := uint32(types.RootIno); i <= g.Inodes; i++ {
		s.maps.UnmarkInode(i)
	}

	table, err := inodes.NewInodeTable(make([]byte, g.InodeTableSize()), g)
	if err != nil {
		return err
	}
	s.table = table
	s.good = &goodBlocks{geo: g, maps: s.maps}

	fmt.Fprintf(s.out, "%d inodes\n", g.Inodes)
	fmt.Fprintf(s.out, "%d blocks\n", g.Zones)
	fmt.Fprintf(s.out, "Firstdatazone=%d (%d)\n", g.FirstDataZone, g.NormFirstZone())
	fmt.Fprintf(s.out, "Zonesize=%d\n", types.BlockSize<<g.LogZoneSize)
	fmt.Fprintf(s.out, "Maxsize=%d\n\n", g.MaxSize)
	return nil
}

// makeRootInode writes the root directory with "." and "..", plus
// ".badblocks" when there are bad blocks to list.
func (s *Service) makeRootInode(withBadBlocks bool) error {
	g := s.geo
	blk, err := s.good.get()
	if err != nil {
		return err
	}

	block := make([]byte, types.BlockSize)
	entries := 2
	directory.WriteEntry(block, 0, types.RootIno, ".", g)
	directory.WriteEntry(block, g.DirEntrySize, types.RootIno, "..", g)
	if withBadBlocks {
		directory.WriteEntry(block, 2*g.DirEntrySize, types.BadBlocksIno, ".badblocks", g)
		entries = 3
	}
	if err := s.dev.WriteBlock(blk, block); err != nil {
		return fmt.Errorf("failed to write root directory: %w", err)
	}

	now := uint32(s.opts.Now().Unix())
	root := types.Inode{
		Mode:   types.ModeDir | 0755,
		Uid:    s.opts.Uid,
		Nlinks: 2,
		Size:   uint32(entries * g.DirEntrySize),
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}
	if root.Uid != 0 {
		root.Gid = s.opts.Gid
	}
	root.Zones[0] = blk

	s.maps.MarkInode(types.RootIno)
	s.table.Put(types.RootIno, root)
	return nil
}

// makeBadInode records the bad zones as the content of the bad blocks inode
func (s *Service) makeBadInode(bad uint32) error {
	if bad == 0 {
		return nil
	}

	now := uint32(s.opts.Now().Unix())
	inode := types.Inode{
		Mode:   types.ModeRegular,
		Nlinks: 1,
		Size:   bad * types.BlockSize,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}

	chain := &zoneChain{geo: s.geo, maps: s.maps, dev: s.dev, alloc: s.good}
	if err := chain.build(&inode); err != nil {
		return err
	}

	s.maps.MarkInode(types.BadBlocksIno)
	s.table.Put(types.BadBlocksIno, inode)
	return nil
}

// writeTables clears the boot sector and writes the superblock marked valid,
// both bitmaps and the inode table.
func (s *Service) writeTables() error {
	g := s.geo
	g.State |= types.StateValid
	g.State &^= types.StateError

	if _, err := s.dev.WriteAt(make([]byte, types.BootBlockSize), 0); err != nil {
		return fmt.Errorf("%w: %v", ErrClearBootSector, err)
	}

	sb := make([]byte, types.BlockSize)
	if err := superblock.Encode(g, sb); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteSuperblock, err)
	}
	if _, err := s.dev.WriteAt(sb, types.SuperblockOffset); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteSuperblock, err)
	}
	if _, err := s.dev.WriteAt(s.maps.InodeMap(), int64(g.ImapStart())*types.BlockSize); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteInodeMap, err)
	}
	if _, err := s.dev.WriteAt(s.maps.ZoneMap(), int64(g.ZmapStart())*types.BlockSize); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteZoneMap, err)
	}
	if _, err := s.dev.WriteAt(s.table.Bytes(), int64(g.InodeTableStart())*types.BlockSize); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteInodes, err)
	}
	return nil
}
