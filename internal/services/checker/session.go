// Package checker implements the Minix file system consistency check: a
// traversal from the root that tallies inode and zone references, followed by
// a reconciliation of those tallies against the on-disk bitmaps and link
// counts.
package checker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/bitmap"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-minixfs/internal/repair"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// DefaultMaxDepth bounds the directory nesting the traversal follows
const DefaultMaxDepth = 50

// Fatal conditions detected while loading or checking.
var (
	ErrRootNotDirectory = errors.New("root inode isn't a directory")
	ErrReadInodeMap     = errors.New("unable to read inode map")
	ErrReadZoneMap      = errors.New("unable to read zone map")
	ErrReadInodes       = errors.New("unable to read inodes")
	ErrTablesNotLoaded  = errors.New("tables not loaded")
)

// Options controls a check
type Options struct {
	// Policy decides on repairs. Defaults to read-only.
	Policy interfaces.RepairPolicy
	// Output receives the diagnostics. Defaults to stdout.
	Output io.Writer
	Logger logrus.FieldLogger

	// List prints every file visited.
	List bool
	// Verbose adds inode details to the listing.
	Verbose bool
	// WarnMode reports inodes that are free in the bitmap but have a mode.
	WarnMode bool
	// MaxDepth bounds directory nesting. Defaults to DefaultMaxDepth.
	MaxDepth int
}

// Stats are the file type tallies collected during the traversal
type Stats struct {
	Regular      uint32 `json:"regular" yaml:"regular"`
	Directories  uint32 `json:"directories" yaml:"directories"`
	CharDevices  uint32 `json:"char_devices" yaml:"char_devices"`
	BlockDevices uint32 `json:"block_devices" yaml:"block_devices"`
	Symlinks     uint32 `json:"symlinks" yaml:"symlinks"`
	Links        uint32 `json:"links" yaml:"links"`
	Total        uint32 `json:"total" yaml:"total"`
}

// Session holds the state of one check of one device
type Session struct {
	dev    interfaces.BlockDevice
	opts   Options
	out    io.Writer
	log    logrus.FieldLogger
	policy interfaces.RepairPolicy

	superblock []byte
	geo        *types.Geometry
	clean      bool

	maps  *bitmap.AllocationBitmap
	table interfaces.InodeTable

	// Reference tallies. Zone tallies saturate at 255.
	inodeCount []uint32
	zoneCount  []uint8
	path       []string

	loaded      bool
	changed     bool
	uncorrected bool
	tooDeep     bool
	stats       Stats
}

// NewSession reads and validates the superblock of dev
func NewSession(dev interfaces.BlockDevice, opts Options) (*Session, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Policy == nil {
		opts.Policy = repair.ReadOnly(opts.Output)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	data := make([]byte, types.BlockSize)
	if _, err := dev.ReadAt(data, types.SuperblockOffset); err != nil {
		return nil, fmt.Errorf("unable to read super block: %w", err)
	}

	reader, err := superblock.NewSuperblockReader(data)
	if err != nil {
		return nil, err
	}
	if err := reader.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		dev:        dev,
		opts:       opts,
		out:        opts.Output,
		log:        opts.Logger.WithField("device", dev.DevicePath()),
		policy:     opts.Policy,
		superblock: data,
		geo:        reader.Geometry(),
		clean:      reader.IsClean(),
	}
	s.policy.OnUncorrected(func() { s.uncorrected = true })

	s.log.WithFields(logrus.Fields{
		"version": s.geo.Version.String(),
		"inodes":  s.geo.Inodes,
		"zones":   s.geo.Zones,
		"swapped": s.geo.Swapped,
	}).Debug("superblock loaded")

	return s, nil
}

// Geometry returns the decoded superblock geometry
func (s *Session) Geometry() *types.Geometry {
	return s.geo
}

// IsClean reports whether the superblock marks the file system clean
func (s *Session) IsClean() bool {
	return s.clean
}

// Changed reports whether any table or block was modified
func (s *Session) Changed() bool {
	return s.changed
}

// Uncorrected reports whether an error was found and left in place
func (s *Session) Uncorrected() bool {
	return s.uncorrected
}

// Stats returns the file type tallies
func (s *Session) Stats() Stats {
	return s.stats
}

// LoadTables reads both bitmaps and the inode table, and probes the root
// directory for the directory entry size.
func (s *Session) LoadTables() error {
	g := s.geo

	imap := make([]byte, int(g.ImapBlocks)*types.BlockSize)
	if err := s.readFull(imap, g.ImapStart()); err != nil {
		return fmt.Errorf("%w: %v", ErrReadInodeMap, err)
	}

	zmap := make([]byte, int(g.ZmapBlocks)*types.BlockSize)
	if err := s.readFull(zmap, g.ZmapStart()); err != nil {
		return fmt.Errorf("%w: %v", ErrReadZoneMap, err)
	}

	table := make([]byte, g.InodeTableSize())
	if err := s.readFull(table, g.InodeTableStart()); err != nil {
		return fmt.Errorf("%w: %v", ErrReadInodes, err)
	}

	inodeTable, err := inodes.NewInodeTable(table, g)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadInodes, err)
	}

	s.maps = bitmap.NewAllocationBitmap(imap, zmap, g.FirstDataZone)
	s.maps.SetOnChange(func() { s.changed = true })
	s.table = inodeTable
	s.inodeCount = make([]uint32, g.Inodes+1)
	s.zoneCount = make([]uint8, g.Zones)
	s.loaded = true

	if g.NormFirstZone() != g.FirstDataZone {
		fmt.Fprintf(s.out, "Warning: Firstzone != Norm_firstzone\n")
		s.uncorrected = true
	}
	s.probeDirSize()
	return nil
}

// ShowSuperblock prints the geometry summary
func (s *Session) ShowSuperblock() {
	g := s.geo
	fmt.Fprintf(s.out, "%d inodes\n", g.Inodes)
	fmt.Fprintf(s.out, "%d blocks\n", g.Zones)
	fmt.Fprintf(s.out, "Firstdatazone=%d (%d)\n", g.FirstDataZone, g.NormFirstZone())
	fmt.Fprintf(s.out, "Zonesize=%d\n", types.BlockSize<<g.LogZoneSize)
	fmt.Fprintf(s.out, "Maxsize=%d\n", g.MaxSize)
	if g.HasState() {
		fmt.Fprintf(s.out, "Filesystem state=%d\n", g.State)
	}
	fmt.Fprintf(s.out, "namelen=%d\n\n", g.NameLen)
}

func (s *Session) readFull(buf []byte, block uint32) error {
	n, err := s.dev.ReadAt(buf, int64(block)*types.BlockSize)
	if n == len(buf) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ask applies the repair policy to a diagnostic already printed
func (s *Session) ask(prompt string, def bool) bool {
	return s.policy.Decide(prompt, def)
}

// printf prints a diagnostic. Diagnostics followed by a repair prompt omit
// the newline; the repair policy completes the line.
func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// currentName renders the path stack as an absolute path
func (s *Session) currentName() string {
	return "/" + strings.Join(s.path, "/")
}

// push adds a name to the path stack. It fails once the stack is full, after
// recording the truncated traversal.
func (s *Session) push(name string) bool {
	if len(s.path) >= s.opts.MaxDepth {
		if !s.tooDeep {
			s.printf("%s: path too deep, not descending past %d levels\n", s.currentName(), s.opts.MaxDepth)
			s.log.WithField("max_depth", s.opts.MaxDepth).Warn("directory traversal truncated")
		}
		s.tooDeep = true
		s.uncorrected = true
		return false
	}
	s.path = append(s.path, name)
	return true
}

func (s *Session) pop() {
	s.path = s.path[:len(s.path)-1]
}

// readBlock reads a block for the traversal. Failures are reported, flagged
// and replaced by a zeroed block.
func (s *Session) readBlock(n uint32) []byte {
	buf, err := s.dev.ReadBlock(n)
	if err != nil {
		s.printf("Read error: bad block in file '%s'\n", s.currentName())
		s.log.WithField("block", n).WithError(err).Debug("read failed")
		s.uncorrected = true
	}
	return buf
}

// writeBlock writes a repaired data area block. Blocks outside the data area
// are never written.
func (s *Session) writeBlock(n uint32, buf []byte) {
	if n == 0 {
		return
	}
	if !s.geo.IsValidZone(n) {
		s.printf("Internal error: trying to write bad block\nWrite request ignored\n")
		s.uncorrected = true
		return
	}
	if err := s.dev.WriteBlock(n, buf); err != nil {
		s.printf("Write error: bad block in file '%s'\n", s.currentName())
		s.log.WithField("block", n).WithError(err).Debug("write failed")
		s.uncorrected = true
		return
	}
	s.changed = true
}

// badZone reports whether zone z cannot be read
func (s *Session) badZone(z uint32) bool {
	_, err := s.dev.ReadBlock(z)
	return err != nil
}
