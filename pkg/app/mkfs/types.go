package mkfs

import (
	"fmt"
	"io"
	"time"

	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Request represents a file system creation request
type Request struct {
	Target app.DeviceTarget

	// Blocks is the file system size in 1024 byte blocks. Zero uses the
	// whole device.
	Blocks uint64
	// Inodes requests an inode count. Zero picks one from the size.
	Inodes uint64

	// Version is 1, 2 or 3; NameLen 14 or 30 for v1/v2 and 60 for v3.
	// Zero values are taken from the configuration.
	Version int
	NameLen int

	// CheckBlocks scans the device for bad blocks; only block devices
	// are scanned.
	CheckBlocks bool
	// BadBlocksFile lists known bad blocks. It is used when no scan runs.
	BadBlocksFile string
}

// Response describes the created file system
type Response struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Device        string        `json:"device" yaml:"device"`
	Version       string        `json:"version" yaml:"version"`
	Magic         string        `json:"magic" yaml:"magic"`
	NameLen       int           `json:"name_len" yaml:"name_len"`
	Inodes        uint32        `json:"inodes" yaml:"inodes"`
	Blocks        uint32        `json:"blocks" yaml:"blocks"`
	ImapBlocks    uint32        `json:"imap_blocks" yaml:"imap_blocks"`
	ZmapBlocks    uint32        `json:"zmap_blocks" yaml:"zmap_blocks"`
	FirstDataZone uint32        `json:"first_data_zone" yaml:"first_data_zone"`
	ZoneSize      int           `json:"zone_size" yaml:"zone_size"`
	MaxSize       uint32        `json:"max_size" yaml:"max_size"`
	BadBlocks     uint32        `json:"bad_blocks" yaml:"bad_blocks"`
	Checked       bool          `json:"checked" yaml:"checked"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

func newResponse(runID, path string, g *types.Geometry) *Response {
	return &Response{
		RunID:         runID,
		Device:        path,
		Version:       g.Version.String(),
		Magic:         fmt.Sprintf("0x%04X", g.Magic),
		NameLen:       g.NameLen,
		Inodes:        g.Inodes,
		Blocks:        g.Zones,
		ImapBlocks:    g.ImapBlocks,
		ZmapBlocks:    g.ZmapBlocks,
		FirstDataZone: g.FirstDataZone,
		ZoneSize:      types.BlockSize << g.LogZoneSize,
		MaxSize:       g.MaxSize,
	}
}

// WriteTable lays the response out as a two column table
func (r *Response) WriteTable(w io.Writer) {
	fmt.Fprintf(w, "DEVICE\t%s\n", r.Device)
	fmt.Fprintf(w, "VERSION\t%s (%s)\n", r.Version, r.Magic)
	fmt.Fprintf(w, "NAMELEN\t%d\n", r.NameLen)
	fmt.Fprintf(w, "INODES\t%d\n", r.Inodes)
	fmt.Fprintf(w, "BLOCKS\t%d\n", r.Blocks)
	fmt.Fprintf(w, "FIRST DATA ZONE\t%d\n", r.FirstDataZone)
	fmt.Fprintf(w, "BAD BLOCKS\t%d\n", r.BadBlocks)
	fmt.Fprintf(w, "RUN\t%s\n", r.RunID)
}
