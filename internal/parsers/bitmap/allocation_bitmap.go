// Package bitmap implements the inode and zone allocation bitmaps. Bit 0 of
// each map is reserved and always set; inode i is bit i and zone z is bit
// z - firstDataZone + 1.
package bitmap

import (
	gobitmap "github.com/boljen/go-bitmap"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
)

// AllocationBitmap implements the AllocationMap interface over the raw map blocks
type AllocationBitmap struct {
	inodes    gobitmap.Bitmap
	zones     gobitmap.Bitmap
	firstZone uint32
	onChange  func()
}

var _ interfaces.AllocationMap = (*AllocationBitmap)(nil)

// NewAllocationBitmap wraps the raw inode and zone maps. The slices are used
// in place, so they can be written back to disk after updates.
func NewAllocationBitmap(imap, zmap []byte, firstZone uint32) *AllocationBitmap {
	return &AllocationBitmap{
		inodes:    gobitmap.Bitmap(imap),
		zones:     gobitmap.Bitmap(zmap),
		firstZone: firstZone,
	}
}

// NewFilledAllocationBitmap allocates maps of the given block counts with
// every bit set, the state a fresh file system starts from before the usable
// inodes and zones are released.
func NewFilledAllocationBitmap(imapBlocks, zmapBlocks uint32, blockSize int, firstZone uint32) *AllocationBitmap {
	imap := make([]byte, int(imapBlocks)*blockSize)
	zmap := make([]byte, int(zmapBlocks)*blockSize)
	for i := range imap {
		imap[i] = 0xFF
	}
	for i := range zmap {
		zmap[i] = 0xFF
	}
	return NewAllocationBitmap(imap, zmap, firstZone)
}

// SetOnChange registers fn to run after every mark or unmark
func (b *AllocationBitmap) SetOnChange(fn func()) {
	b.onChange = fn
}

func (b *AllocationBitmap) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

func (b *AllocationBitmap) zoneBit(z uint32) (int, bool) {
	if uint64(z)+1 < uint64(b.firstZone) {
		return 0, false
	}
	bit := int(uint64(z) + 1 - uint64(b.firstZone))
	return bit, bit < b.zones.Len()
}

// InodeInUse reports whether inode i is marked allocated
func (b *AllocationBitmap) InodeInUse(i uint32) bool {
	if int(i) >= b.inodes.Len() {
		return false
	}
	return b.inodes.Get(int(i))
}

// MarkInode marks inode i allocated
func (b *AllocationBitmap) MarkInode(i uint32) {
	if int(i) >= b.inodes.Len() {
		return
	}
	b.inodes.Set(int(i), true)
	b.changed()
}

// UnmarkInode marks inode i free
func (b *AllocationBitmap) UnmarkInode(i uint32) {
	if int(i) >= b.inodes.Len() {
		return
	}
	b.inodes.Set(int(i), false)
	b.changed()
}

// ZoneInUse reports whether zone z is marked allocated
func (b *AllocationBitmap) ZoneInUse(z uint32) bool {
	bit, ok := b.zoneBit(z)
	if !ok {
		return false
	}
	return b.zones.Get(bit)
}

// MarkZone marks zone z allocated
func (b *AllocationBitmap) MarkZone(z uint32) {
	bit, ok := b.zoneBit(z)
	if !ok {
		return
	}
	b.zones.Set(bit, true)
	b.changed()
}

// UnmarkZone marks zone z free
func (b *AllocationBitmap) UnmarkZone(z uint32) {
	bit, ok := b.zoneBit(z)
	if !ok {
		return
	}
	b.zones.Set(bit, false)
	b.changed()
}

// InodeMap returns the raw inode bitmap
func (b *AllocationBitmap) InodeMap() []byte {
	return b.inodes.Data(false)
}

// ZoneMap returns the raw zone bitmap
func (b *AllocationBitmap) ZoneMap() []byte {
	return b.zones.Data(false)
}
