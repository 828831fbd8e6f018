package checker

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-minixfs/internal/parsers/directory"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// checkRoot fails unless the root inode is a directory
func (s *Session) checkRoot() error {
	root := s.table.Get(types.RootIno)
	if !root.IsDir() {
		return ErrRootNotDirectory
	}
	return nil
}

// probeDirSize looks for ".." in the root's first block at every power of
// two offset and adopts the first hit as the entry size.
func (s *Session) probeDirSize() {
	root := s.table.Get(types.RootIno)
	if !s.geo.IsValidZone(root.Zones[0]) {
		return
	}
	buf, err := s.dev.ReadBlock(root.Zones[0])
	if err != nil {
		return
	}

	width := s.geo.Trait().DirInoWidth
	for size := 16; size < types.BlockSize; size <<= 1 {
		if directory.NameAt(buf, size+width, size-width) == ".." {
			if size != s.geo.DirEntrySize {
				s.log.WithFields(logrus.Fields{"dirsize": size, "superblock_dirsize": s.geo.DirEntrySize}).Debug("directory entry size taken from root")
			}
			s.geo.DirEntrySize = size
			s.geo.NameLen = size - width
			return
		}
	}
}

// bumpZone counts one more reference to zone z
func (s *Session) bumpZone(z uint32) {
	if s.zoneCount[z] < math.MaxUint8 {
		s.zoneCount[z]++
	}
}

// addZone claims the zone referenced by *nr for the current file. A zone
// already claimed by an earlier file is offered for clearing from this one.
func (s *Session) addZone(nr *uint32, corrected *bool) uint32 {
	block := s.checkZoneNr(nr, corrected)
	if block == 0 {
		return 0
	}

	if s.zoneCount[block] > 0 {
		s.printf("Already used block is reused in file `%s'. ", s.currentName())
		if s.ask("Clear", true) {
			*nr = 0
			*corrected = true
			return 0
		}
	}

	if !s.maps.ZoneInUse(block) {
		s.printf("Block %d in file `%s' is marked not in use.", block, s.currentName())
		if s.ask("Correct", true) {
			s.maps.MarkZone(block)
		}
	}

	s.bumpZone(block)
	return block
}

// addZoneIndirect claims the indirect block at *nr and, recursively, every
// zone it references. level 1 holds data zone pointers.
func (s *Session) addZoneIndirect(nr *uint32, corrected *bool, level int) {
	block := s.addZone(nr, corrected)
	if block == 0 {
		return
	}

	buf := s.readBlock(block)
	ib := inodes.NewIndirectBlock(buf, s.geo)

	var blockCorrected bool
	for i := uint32(0); i < ib.Len(); i++ {
		zone := ib.Get(i)
		var fixed bool
		if level == 1 {
			s.addZone(&zone, &fixed)
		} else {
			s.addZoneIndirect(&zone, &fixed, level-1)
		}
		if fixed {
			ib.Set(i, zone)
			blockCorrected = true
		}
	}

	if blockCorrected {
		s.writeBlock(block, buf)
	}
}

// checkZones claims every zone of inode ino. Inodes reached through a second
// link have already been scanned and are skipped, as are inodes whose zone
// slots do not hold block numbers.
func (s *Session) checkZones(ino uint32) {
	if ino == 0 || ino > s.geo.Inodes {
		return
	}
	if s.inodeCount[ino] > 1 {
		return
	}

	inode := s.table.Get(ino)
	if !inode.HasZones() {
		return
	}

	trait := s.geo.Trait()
	var corrected bool
	for i := 0; i < trait.DirectZones; i++ {
		s.addZone(&inode.Zones[i], &corrected)
	}
	for level := 1; level <= trait.IndirectLevels; level++ {
		s.addZoneIndirect(&inode.Zones[trait.DirectZones+level-1], &corrected, level)
	}

	if corrected {
		s.table.Put(ino, inode)
		s.changed = true
	}
}

// getInode records a reference to inode ino. The first reference checks the
// inode bitmap and classifies the file; later references count as links.
func (s *Session) getInode(ino uint32) (types.Inode, bool) {
	if ino == 0 || ino > s.geo.Inodes {
		return types.Inode{}, false
	}

	s.stats.Total++
	inode := s.table.Get(ino)

	if s.inodeCount[ino] == 0 {
		if !s.maps.InodeInUse(ino) {
			s.printf("Inode %d marked unused, but used for file '%s'\n", ino, s.currentName())
			if s.policy.Repairs() {
				if s.ask("Mark in use", true) {
					s.maps.MarkInode(ino)
				}
			} else {
				s.uncorrected = true
			}
		}
		switch {
		case inode.IsDir():
			s.stats.Directories++
		case inode.IsRegular():
			s.stats.Regular++
		case inode.IsChar():
			s.stats.CharDevices++
		case inode.IsBlock():
			s.stats.BlockDevices++
		case inode.IsSymlink():
			s.stats.Symlinks++
		case inode.IsSocket(), inode.IsFifo():
		default:
			s.printf("The file `%s' has mode %05o\n", s.currentName(), inode.Mode)
		}
	} else {
		s.stats.Links++
	}

	if s.inodeCount[ino] == math.MaxUint32 {
		s.printf("Warning: inode count too big.\n")
		s.uncorrected = true
	} else {
		s.inodeCount[ino]++
	}
	return inode, true
}

// checkFile examines the directory entry at offset of directory dirIno. It
// returns false when the directory is malformed and must be abandoned.
func (s *Session) checkFile(dirIno uint32, offset uint32) bool {
	block := s.mapBlock(dirIno, offset/types.BlockSize)
	buf := s.readBlock(block)
	pos := int(offset % types.BlockSize)

	entry := directory.ReadEntry(buf, pos, s.geo)
	ino := entry.Ino
	if ino > s.geo.Inodes {
		s.printf("The directory '%s' contains a bad inode number for file '%s'.", s.currentName(), entry.Name)
		if s.ask("Remove", true) {
			directory.SetIno(buf, pos, 0, s.geo)
			s.writeBlock(block, buf)
		}
		ino = 0
	}

	if !s.push(entry.Name) {
		return true
	}
	inode, ok := s.getInode(ino)
	s.pop()

	dirSize := uint32(s.geo.DirEntrySize)
	switch offset {
	case 0:
		if ok && entry.Name == "." {
			return true
		}
		s.printf("%s: bad directory: '.' isn't first\n", s.currentName())
		s.uncorrected = true
		return false
	case dirSize:
		if ok && entry.Name == ".." {
			return true
		}
		s.printf("%s: bad directory: '..' isn't second\n", s.currentName())
		s.uncorrected = true
		return false
	}

	if !ok {
		return true
	}
	if !s.push(entry.Name) {
		return true
	}
	defer s.pop()

	if s.opts.List {
		if s.opts.Verbose {
			s.printf("%6d %07o %3d ", ino, inode.Mode, inode.Nlinks)
		}
		if inode.IsDir() {
			s.printf("%s:\n", s.currentName())
		} else {
			s.printf("%s\n", s.currentName())
		}
	}

	s.checkZones(ino)
	if inode.IsDir() {
		s.recursiveCheck(ino)
	}
	return true
}

// recursiveCheck visits every entry of directory ino
func (s *Session) recursiveCheck(ino uint32) {
	dir := s.table.Get(ino)
	if !dir.IsDir() {
		return
	}

	dirSize := uint32(s.geo.DirEntrySize)
	if dir.Size < 2*dirSize {
		s.printf("%s: bad directory: size < %d\n", s.currentName(), 2*dirSize)
		s.uncorrected = true
	}

	if !s.policy.Interactive() && !s.geo.IsValidZone(dir.Zones[0]) {
		s.printf("%s: bad directory: invalid i_zone, use --repair to fix\n", s.currentName())
		s.uncorrected = true
		return
	}

	for offset := uint32(0); offset < s.table.Get(ino).Size; offset += dirSize {
		if !s.checkFile(ino, offset) {
			return
		}
	}
}
