package checker

import (
	"github.com/deploymenttheory/go-minixfs/internal/parsers/inodes"
)

// checkZoneNr validates the zone pointer *nr. Out of range pointers are
// reported and, if the policy agrees, cleared in place with *corrected set.
// The returned zone is 0 whenever the pointer is not usable.
func (s *Session) checkZoneNr(nr *uint32, corrected *bool) uint32 {
	if *nr == 0 {
		return 0
	}

	if *nr < s.geo.FirstDataZone {
		s.printf("Zone nr < FIRSTZONE in file `%s'.", s.currentName())
	} else if *nr >= s.geo.Zones {
		s.printf("Zone nr >= ZONES in file `%s'.", s.currentName())
	} else {
		return *nr
	}

	if s.ask("Remove block", true) {
		*nr = 0
		*corrected = true
	}
	return 0
}

// mapBlock translates logical block blknr of inode ino to a zone number,
// validating every pointer on the way. Corrections to the inode are written
// back to the table; corrections to indirect blocks are written to disk.
func (s *Session) mapBlock(ino uint32, blknr uint32) uint32 {
	trait := s.geo.Trait()
	inode := s.table.Get(ino)

	var corrected bool
	defer func() {
		if corrected {
			s.table.Put(ino, inode)
			s.changed = true
		}
	}()

	if blknr < uint32(trait.DirectZones) {
		return s.checkZoneNr(&inode.Zones[blknr], &corrected)
	}
	blknr -= uint32(trait.DirectZones)

	span := uint64(1)
	for level := 1; level <= trait.IndirectLevels; level++ {
		span *= uint64(trait.FanOut)
		if uint64(blknr) < span || level == trait.IndirectLevels {
			slot := &inode.Zones[trait.DirectZones+level-1]
			return s.walkIndirect(s.checkZoneNr(slot, &corrected), level, uint64(blknr))
		}
		blknr -= uint32(span)
	}
	return 0
}

// walkIndirect descends level indirect blocks starting at block, following
// index within the subtree. An index beyond what the tree can address is
// reported and yields 0 without any repair.
func (s *Session) walkIndirect(block uint32, level int, index uint64) uint32 {
	fanOut := uint64(s.geo.Trait().FanOut)

	divisor := uint64(1)
	for i := 1; i < level; i++ {
		divisor *= fanOut
	}

	for ; level >= 1; level-- {
		buf := s.readBlock(block)
		ib := inodes.NewIndirectBlock(buf, s.geo)

		slot := index / divisor
		if slot >= uint64(ib.Len()) {
			s.printf("Warning: block out of range\n")
			s.uncorrected = true
			return 0
		}
		index %= divisor
		divisor /= fanOut
		if divisor == 0 {
			divisor = 1
		}

		var corrected bool
		zone := ib.Get(uint32(slot))
		next := s.checkZoneNr(&zone, &corrected)
		if corrected {
			ib.Set(uint32(slot), zone)
			s.writeBlock(block, buf)
		}
		block = next
	}
	return block
}
