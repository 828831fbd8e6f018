package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

// extMagicOffset is where ext2/3/4 keep their magic. Parts of an ext3 image
// can look like a Minix superblock, so a match there rules Minix out.
const extMagicOffset = 0x400 + 0x38

var extMagic = []byte{0x53, 0xEF}

// ErrNotMinix is returned by Probe when the device does not hold a Minix file system
var ErrNotMinix = errors.New("no minix file system detected")

// ProbeResult describes a detected Minix file system
type ProbeResult struct {
	Version   types.Version
	Magic     uint16
	Swapped   bool
	NameLen   int
	Inodes    uint32
	Zones     uint32
	FirstZone uint32
	State     uint16
	Geometry  *types.Geometry
}

// Probe reads the superblock from r and applies the detection heuristics used
// by the block device identification library: magic in either byte order,
// plausible state flags, plausible geometry and no ext magic.
func Probe(r io.ReaderAt) (*ProbeResult, error) {
	data := make([]byte, types.BlockSize)
	if _, err := r.ReadAt(data, types.SuperblockOffset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}

	reader, err := NewSuperblockReader(data)
	if err != nil {
		if errors.Is(err, ErrBadMagic) {
			return nil, ErrNotMinix
		}
		return nil, err
	}
	g := reader.Geometry()

	if g.HasState() && g.State&(types.StateValid|types.StateError) != g.State {
		return nil, fmt.Errorf("%w: unexpected state flags 0x%04X", ErrNotMinix, g.State)
	}
	if err := ValidateGeometry(g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMinix, err)
	}

	ext := make([]byte, len(extMagic))
	if _, err := r.ReadAt(ext, extMagicOffset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read ext magic: %w", err)
	}
	if bytes.Equal(ext, extMagic) {
		return nil, fmt.Errorf("%w: ext file system magic present", ErrNotMinix)
	}

	return &ProbeResult{
		Version:   g.Version,
		Magic:     g.Magic,
		Swapped:   g.Swapped,
		NameLen:   g.NameLen,
		Inodes:    g.Inodes,
		Zones:     g.Zones,
		FirstZone: g.FirstDataZone,
		State:     g.State,
		Geometry:  g,
	}, nil
}
