package probe

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Request represents a detection request
type Request struct {
	Target app.DeviceTarget
}

// Validate validates a detection request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid device", err)
	}
	return nil
}

// Response describes the detected file system
type Response struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	Device    string `json:"device" yaml:"device"`
	Version   string `json:"version" yaml:"version"`
	Magic     string `json:"magic" yaml:"magic"`
	Swapped   bool   `json:"swapped" yaml:"swapped"`
	NameLen   int    `json:"name_len" yaml:"name_len"`
	Inodes    uint32 `json:"inodes" yaml:"inodes"`
	Zones     uint32 `json:"zones" yaml:"zones"`
	FirstZone uint32 `json:"first_zone" yaml:"first_zone"`
	State     string `json:"state" yaml:"state"`
}

// WriteTable lays the response out as a two column table
func (r *Response) WriteTable(w io.Writer) {
	byteOrder := "little-endian"
	if r.Swapped {
		byteOrder = "big-endian"
	}
	fmt.Fprintf(w, "DEVICE\t%s\n", r.Device)
	fmt.Fprintf(w, "TYPE\tminix %s (%s, %s)\n", r.Version, r.Magic, byteOrder)
	fmt.Fprintf(w, "NAMELEN\t%d\n", r.NameLen)
	fmt.Fprintf(w, "INODES\t%d\n", r.Inodes)
	fmt.Fprintf(w, "ZONES\t%d\n", r.Zones)
	fmt.Fprintf(w, "FIRST ZONE\t%d\n", r.FirstZone)
	fmt.Fprintf(w, "STATE\t%s\n", r.State)
}
