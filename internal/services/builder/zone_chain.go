package builder

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Allocation errors.
var (
	ErrTooManyBadBlocks    = errors.New("too many bad blocks")
	ErrNotEnoughGoodBlocks = errors.New("not enough good blocks")
)

// MaxGoodBlocks bounds the blocks handed out for the root directory and the
// bad blocks chain
const MaxGoodBlocks = 512

// goodBlocks hands out free data zones in ascending order. Zones marked in
// use at this stage are bad blocks; the handed out zones are only marked
// once the chain is complete so that nextBad skips them.
type goodBlocks struct {
	geo   *types.Geometry
	maps  interfaces.AllocationMap
	taken []uint32
}

func (a *goodBlocks) get() (uint32, error) {
	if len(a.taken)+1 >= MaxGoodBlocks {
		return 0, ErrTooManyBadBlocks
	}

	blk := a.geo.FirstDataZone
	if n := len(a.taken); n > 0 {
		blk = a.taken[n-1] + 1
	}
	for blk < a.geo.Zones && a.maps.ZoneInUse(blk) {
		blk++
	}
	if blk >= a.geo.Zones {
		return 0, ErrNotEnoughGoodBlocks
	}
	a.taken = append(a.taken, blk)
	return blk, nil
}

// markAll marks every handed out zone in use
func (a *goodBlocks) markAll() {
	for _, blk := range a.taken {
		a.maps.MarkZone(blk)
	}
}

// nextBad returns the first bad zone after zone, or 0 when there is none.
// Zone 0 starts the iteration.
func nextBad(geo *types.Geometry, maps interfaces.AllocationMap, zone uint32) uint32 {
	if zone == 0 {
		zone = geo.FirstDataZone - 1
	}
	for zone++; zone < geo.Zones; zone++ {
		if maps.ZoneInUse(zone) {
			return zone
		}
	}
	return 0
}

// zoneChain lists the bad zones in an inode's zone pointers, allocating
// indirect blocks from the good block allocator as the list grows.
type zoneChain struct {
	geo   *types.Geometry
	maps  interfaces.AllocationMap
	dev   interfaces.BlockDevice
	alloc *goodBlocks
	zone  uint32
}

// build fills inode with every bad zone
func (c *zoneChain) build(inode *types.Inode) error {
	trait := c.geo.Trait()
	c.zone = nextBad(c.geo, c.maps, 0)

	for i := 0; i < trait.DirectZones && c.zone != 0; i++ {
		inode.Zones[i] = c.zone
		c.advance()
	}
	for level := 1; level <= trait.IndirectLevels && c.zone != 0; level++ {
		blk, err := c.fill(level)
		if err != nil {
			return err
		}
		inode.Zones[trait.DirectZones+level-1] = blk
	}

	if c.zone != 0 {
		return ErrTooManyBadBlocks
	}
	return nil
}

func (c *zoneChain) advance() {
	c.zone = nextBad(c.geo, c.maps, c.zone)
}

// fill allocates an indirect block of the given level and populates it.
// Level 1 blocks hold bad zones; higher levels hold the next level down.
func (c *zoneChain) fill(level int) (uint32, error) {
	blk, err := c.alloc.get()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, types.BlockSize)
	ib := inodes.NewIndirectBlock(buf, c.geo)
	for i := uint32(0); i < ib.Len() && c.zone != 0; i++ {
		if level == 1 {
			ib.Set(i, c.zone)
			c.advance()
			continue
		}
		child, err := c.fill(level - 1)
		if err != nil {
			return 0, err
		}
		ib.Set(i, child)
	}

	if err := c.dev.WriteBlock(blk, buf); err != nil {
		return 0, fmt.Errorf("failed to write indirect block %d: %w", blk, err)
	}
	return blk, nil
}
