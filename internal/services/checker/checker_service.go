package checker

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Errors returned when results cannot be written back.
var (
	ErrWriteSuperblock = errors.New("unable to write super-block")
	ErrWriteInodeMap   = errors.New("unable to write inode map")
	ErrWriteZoneMap    = errors.New("unable to write zone map")
	ErrWriteInodes     = errors.New("unable to write inodes")
)

// Usage summarises bitmap occupancy
type Usage struct {
	InodesUsed uint32 `json:"inodes_used" yaml:"inodes_used"`
	Inodes     uint32 `json:"inodes" yaml:"inodes"`
	ZonesUsed  uint32 `json:"zones_used" yaml:"zones_used"`
	Zones      uint32 `json:"zones" yaml:"zones"`
}

// Check runs the reference pass from the root followed by the reconciliation
// of the tallies against the bitmaps and link counts.
func (s *Session) Check() error {
	if !s.loaded {
		return ErrTablesNotLoaded
	}
	if err := s.checkRoot(); err != nil {
		return err
	}

	for i := range s.inodeCount {
		s.inodeCount[i] = 0
	}
	for i := range s.zoneCount {
		s.zoneCount[i] = 0
	}
	s.path = s.path[:0]
	s.stats = Stats{}

	s.log.Debug("starting reference pass")
	s.checkZones(types.RootIno)
	s.recursiveCheck(types.RootIno)

	s.log.Debug("reconciling counts")
	s.checkCounts()

	s.log.WithField("changed", s.changed).WithField("uncorrected", s.uncorrected).Debug("check finished")
	return nil
}

// Usage counts allocated inodes and zones from the bitmaps
func (s *Session) Usage() Usage {
	u := Usage{Inodes: s.geo.Inodes, Zones: s.geo.Zones}
	if !s.loaded {
		return u
	}

	var free uint32
	for i := uint32(1); i <= s.geo.Inodes; i++ {
		if !s.maps.InodeInUse(i) {
			free++
		}
	}
	u.InodesUsed = s.geo.Inodes - free

	free = 0
	for z := s.geo.FirstDataZone; z < s.geo.Zones; z++ {
		if !s.maps.ZoneInUse(z) {
			free++
		}
	}
	u.ZonesUsed = s.geo.Zones - free
	return u
}

// PrintSummary prints the usage and file type summary
func (s *Session) PrintSummary() {
	u := s.Usage()
	st := s.stats

	s.printf("\n%6d inodes used (%d%%)\n", u.InodesUsed, percent(u.InodesUsed, u.Inodes))
	s.printf("%6d zones used (%d%%)\n", u.ZonesUsed, percent(u.ZonesUsed, u.Zones))
	s.printf("\n%6d regular files\n"+
		"%6d directories\n"+
		"%6d character device files\n"+
		"%6d block device files\n"+
		"%6d links\n"+
		"%6d symbolic links\n"+
		"------\n"+
		"%6d files\n",
		st.Regular, st.Directories, st.CharDevices, st.BlockDevices,
		int64(st.Links)-2*int64(st.Directories)+1, st.Symlinks,
		int64(st.Total)-2*int64(st.Directories)+1)
}

func percent(part, whole uint32) uint64 {
	if whole == 0 {
		return 0
	}
	return uint64(part) * 100 / uint64(whole)
}

// Commit writes the results back. Modified tables are written in full;
// otherwise a repairing run only refreshes the superblock state.
func (s *Session) Commit() error {
	if s.dev.IsReadOnly() {
		return nil
	}

	if s.changed {
		if err := s.writeTables(); err != nil {
			return err
		}
		s.printf("----------------------------\n" +
			"FILE SYSTEM HAS BEEN CHANGED\n" +
			"----------------------------\n")
		return s.dev.Sync()
	}

	if s.policy.Repairs() {
		if err := s.writeSuperblock(); err != nil {
			return err
		}
		return s.dev.Sync()
	}
	return nil
}

// writeSuperblock sets the valid flag and records whether errors remain.
// v3 superblocks carry no state.
func (s *Session) writeSuperblock() error {
	g := s.geo
	if !g.HasState() {
		return nil
	}

	g.State |= types.StateValid
	if s.uncorrected {
		g.State |= types.StateError
	} else {
		g.State &^= types.StateError
	}
	g.ByteOrder.PutUint16(s.superblock[types.SbV1StateOffset:], g.State)

	if _, err := s.dev.WriteAt(s.superblock, types.SuperblockOffset); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteSuperblock, err)
	}
	return nil
}

// writeTables writes the superblock, both bitmaps and the inode table
func (s *Session) writeTables() error {
	if err := s.writeSuperblock(); err != nil {
		return err
	}

	g := s.geo
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
