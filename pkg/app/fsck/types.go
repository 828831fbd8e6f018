package fsck

import (
	"fmt"
	"io"
	"time"

	"github.com/deploymenttheory/go-minixfs/internal/repair"
	"github.com/deploymenttheory/go-minixfs/internal/services/checker"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Request represents a file system check request
type Request struct {
	Target app.DeviceTarget

	// Repair asks before every repair; Automatic takes the default answer
	// instead and wins when both are set.
	Repair    bool
	Automatic bool

	List      bool
	Verbose   bool
	ShowSuper bool
	WarnMode  bool
	Force     bool
}

// Mode returns the repair mode the request selects
func (r *Request) Mode() repair.Mode {
	switch {
	case r.Automatic:
		return repair.ModeAutomatic
	case r.Repair:
		return repair.ModeInteractive
	default:
		return repair.ModeReadOnly
	}
}

// Repairs reports whether the device must be opened for writing
func (r *Request) Repairs() bool {
	return r.Repair || r.Automatic
}

// Response represents the outcome of a check
type Response struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Device      string         `json:"device" yaml:"device"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Mode        string         `json:"mode" yaml:"mode"`
	Clean       bool           `json:"clean" yaml:"clean"`
	Skipped     bool           `json:"skipped" yaml:"skipped"`
	Aborted     bool           `json:"aborted" yaml:"aborted"`
	Changed     bool           `json:"changed" yaml:"changed"`
	Uncorrected bool           `json:"uncorrected" yaml:"uncorrected"`
	ExitStatus  app.ExitStatus `json:"exit_status" yaml:"exit_status"`
	Usage       *checker.Usage `json:"usage,omitempty" yaml:"usage,omitempty"`
	Files       *checker.Stats `json:"files,omitempty" yaml:"files,omitempty"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
}

// Status summarises the response in one word
func (r *Response) Status() string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.Skipped:
		return "clean"
	case r.Changed && r.Uncorrected:
		return "repaired, errors remain"
	case r.Changed:
		return "repaired"
	case r.Uncorrected:
		return "errors"
	default:
		return "ok"
	}
}

// WriteTable lays the response out as a two column table
func (r *Response) WriteTable(w io.Writer) {
	fmt.Fprintf(w, "DEVICE\t%s\n", r.Device)
	if r.Version != "" {
		fmt.Fprintf(w, "VERSION\t%s\n", r.Version)
	}
	fmt.Fprintf(w, "MODE\t%s\n", r.Mode)
	fmt.Fprintf(w, "STATUS\t%s\n", r.Status())
	fmt.Fprintf(w, "EXIT\t%d\n", r.ExitStatus)
	if r.Usage != nil {
		fmt.Fprintf(w, "INODES\t%d/%d\n", r.Usage.InodesUsed, r.Usage.Inodes)
		fmt.Fprintf(w, "ZONES\t%d/%d\n", r.Usage.ZonesUsed, r.Usage.Zones)
	}
	fmt.Fprintf(w, "RUN\t%s\n", r.RunID)
}
