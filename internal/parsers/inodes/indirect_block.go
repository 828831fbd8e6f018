package inodes

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// IndirectBlock is a view over a block of zone pointers. The pointer width
// comes from the format trait: 16 bits for v1, 32 bits otherwise.
type IndirectBlock struct {
	data   []byte
	width  int
	endian binary.ByteOrder
}

// NewIndirectBlock wraps data as an array of zone pointers
func NewIndirectBlock(data []byte, g *types.Geometry) *IndirectBlock {
	endian := g.ByteOrder
	if endian == nil {
		endian = binary.LittleEndian
	}
	return &IndirectBlock{
		data:   data,
		width:  g.Trait().PointerWidth,
		endian: endian,
	}
}

// Len returns the number of pointers in the block
func (b *IndirectBlock) Len() uint32 {
	return uint32(len(b.data) / b.width)
}

// Get returns pointer i
func (b *IndirectBlock) Get(i uint32) uint32 {
	off := int(i) * b.width
	if b.width == 2 {
		return uint32(b.endian.Uint16(b.data[off:]))
	}
	return b.endian.Uint32(b.data[off:])
}

// Set stores pointer i
func (b *IndirectBlock) Set(i uint32, zone uint32) {
	off := int(i) * b.width
	if b.width == 2 {
		b.endian.PutUint16(b.data[off:], uint16(zone))
		return
	}
	b.endian.PutUint32(b.data[off:], zone)
}

// Bytes returns the underlying block
func (b *IndirectBlock) Bytes() []byte {
	return b.data
}
