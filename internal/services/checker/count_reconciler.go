package checker

// reconcileAsk is ask for reconciliation repairs. After a truncated
// traversal the tallies are incomplete, so nothing derived from them is
// applied.
func (s *Session) reconcileAsk(prompt string, def bool) bool {
	if s.tooDeep {
		s.printf(" (not repaired, traversal incomplete)\n")
		s.uncorrected = true
		return false
	}
	return s.ask(prompt, def)
}

// checkCounts compares the traversal tallies with the bitmaps and the inode
// link counts.
func (s *Session) checkCounts() {
	maxLinks := s.geo.Version.MaxNlinks()

	for i := uint32(1); i <= s.geo.Inodes; i++ {
		inode := s.table.Get(i)
		inUse := s.maps.InodeInUse(i)

		if !inUse && inode.Mode != 0 && s.opts.WarnMode {
			s.printf("Inode %d mode not cleared.", i)
			if s.ask("Clear", true) {
				inode.Mode = 0
				s.table.Put(i, inode)
				s.changed = true
			}
		}

		count := s.inodeCount[i]
		if count == 0 {
			if !inUse {
				continue
			}
			s.printf("Inode %d not used, marked used in the bitmap.", i)
			if s.reconcileAsk("Clear", true) {
				s.maps.UnmarkInode(i)
			}
			continue
		}

		if !inUse {
			s.printf("Inode %d used, marked unused in the bitmap.", i)
			if s.ask("Set", true) {
				s.maps.MarkInode(i)
			}
		}

		if uint32(inode.Nlinks) != count {
			s.printf("Inode %d (mode = %07o), i_nlinks=%d, counted=%d.", i, inode.Mode, inode.Nlinks, count)
			if s.reconcileAsk("Set i_nlinks to count", true) {
				if count > maxLinks {
					count = maxLinks
				}
				inode.Nlinks = uint16(count)
				s.table.Put(i, inode)
				s.changed = true
			}
		}
	}

	for z := s.geo.FirstDataZone; z < s.geo.Zones; z++ {
		inUse := s.maps.ZoneInUse(z)
		count := s.zoneCount[z]
		if (inUse && count == 1) || (!inUse && count == 0) {
			continue
		}

		if count == 0 {
			if s.badZone(z) {
				continue
			}
			s.printf("Zone %d: marked in use, no file uses it.", z)
			if s.reconcileAsk("Unmark", true) {
				s.maps.UnmarkZone(z)
			}
			continue
		}

		if inUse {
			s.printf("Zone %d: in use, counted=%d\n", z, count)
		} else {
			s.printf("Zone %d: not in use, counted=%d\n", z, count)
		}
		s.uncorrected = true
	}
}
