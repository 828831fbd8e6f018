package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocationBitmapInodes(t *testing.T) {
	imap := make([]byte, 1024)
	zmap := make([]byte, 1024)
	b := NewAllocationBitmap(imap, zmap, 100)

	changes := 0
	b.SetOnChange(func() { changes++ })

	assert.False(t, b.InodeInUse(5))
	b.MarkInode(5)
	assert.True(t, b.InodeInUse(5))
	assert.Equal(t, byte(0x20), imap[0])

	b.UnmarkInode(5)
	assert.False(t, b.InodeInUse(5))
	assert.Equal(t, byte(0), imap[0])
	assert.Equal(t, 2, changes)
}

func TestAllocationBitmapZoneOffset(t *testing.T) {
	tests := []struct {
		name      string
		firstZone uint32
		zone      uint32
		byteIdx   int
		mask      byte
	}{
		{name: "first data zone is bit 1", firstZone: 100, zone: 100, byteIdx: 0, mask: 0x02},
		{name: "reserved bit 0", firstZone: 100, zone: 99, byteIdx: 0, mask: 0x01},
		{name: "second byte", firstZone: 214, zone: 221, byteIdx: 1, mask: 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zmap := make([]byte, 1024)
			b := NewAllocationBitmap(make([]byte, 1024), zmap, tt.firstZone)

			b.MarkZone(tt.zone)
			assert.True(t, b.ZoneInUse(tt.zone))
			assert.Equal(t, tt.mask, zmap[tt.byteIdx])

			b.UnmarkZone(tt.zone)
			assert.False(t, b.ZoneInUse(tt.zone))
			assert.Equal(t, byte(0), zmap[tt.byteIdx])
		})
	}
}

func TestAllocationBitmapOutOfRange(t *testing.T) {
	b := NewAllocationBitmap(make([]byte, 1), make([]byte, 1), 10)

	b.MarkInode(100)
	b.MarkZone(5)
	b.MarkZone(1000)

	assert.False(t, b.InodeInUse(100))
	assert.False(t, b.ZoneInUse(5))
	assert.False(t, b.ZoneInUse(1000))
}

func TestNewFilledAllocationBitmap(t *testing.T) {
	b := NewFilledAllocationBitmap(1, 2, 1024, 50)

	assert.Len(t, b.InodeMap(), 1024)
	assert.Len(t, b.ZoneMap(), 2048)
	assert.True(t, b.InodeInUse(0))
	assert.True(t, b.ZoneInUse(50))
	assert.True(t, b.ZoneInUse(50+2*8192-2))
}
