package directory

import (
	"bytes"
	"encoding/binary"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// Entry is a decoded directory entry
type Entry struct {
	Ino  uint32
	Name string
}

// layout captures the entry shape for one geometry
type layout struct {
	inoWidth int
	nameLen  int
	endian   binary.ByteOrder
}

func layoutFor(g *types.Geometry) layout {
	endian := g.ByteOrder
	if endian == nil {
		endian = binary.LittleEndian
	}
	return layout{
		inoWidth: g.Trait().DirInoWidth,
		nameLen:  g.DirEntrySize - g.Trait().DirInoWidth,
		endian:   endian,
	}
}

// ReadEntry decodes the entry at offset off of block. Names are NUL
// terminated unless they fill the whole name field.
func ReadEntry(block []byte, off int, g *types.Geometry) Entry {
	l := layoutFor(g)
	var ino uint32
	if l.inoWidth == 2 {
		ino = uint32(l.endian.Uint16(block[off:]))
	} else {
		ino = l.endian.Uint32(block[off:])
	}

	raw := block[off+l.inoWidth : off+l.inoWidth+l.nameLen]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	return Entry{Ino: ino, Name: string(raw)}
}

// WriteEntry encodes an entry at offset off of block. Names longer than the
// name field are truncated; shorter names are NUL padded.
func WriteEntry(block []byte, off int, ino uint32, name string, g *types.Geometry) {
	l := layoutFor(g)
	SetIno(block, off, ino, g)

	field := block[off+l.inoWidth : off+l.inoWidth+l.nameLen]
	for i := range field {
		field[i] = 0
	}
	copy(field, name)
}

// SetIno overwrites only the inode number of the entry at off
func SetIno(block []byte, off int, ino uint32, g *types.Geometry) {
	l := layoutFor(g)
	if l.inoWidth == 2 {
		l.endian.PutUint16(block[off:], uint16(ino))
		return
	}
	l.endian.PutUint32(block[off:], ino)
}

// NameAt returns the NUL terminated string starting at byte offset off. It is
// used to probe for ".." when the entry size is not yet known.
func NameAt(block []byte, off, max int) string {
	if off >= len(block) {
		return ""
	}
	end := off + max
	if end > len(block) {
		end = len(block)
	}
	raw := block[off:end]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}
