// Package apptest provides an application context over an in-memory file
// system for handler tests.
package apptest

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// MountsFile is the mount table the context reads
const MountsFile = "/proc/self/mounts"

// Context is an application context whose output is captured
type Context struct {
	*app.Context
	Out  *bytes.Buffer
	Logs *test.Hook
}

// NewContext returns a context over fs that never syncs and reads the mount
// table from MountsFile
func NewContext(t *testing.T, fs afero.Fs) *Context {
	t.Helper()

	logger, hook := test.NewNullLogger()
	cfg := device.DefaultConfig()
	cfg.MountsFile = MountsFile
	cfg.FallbackMountsFile = ""
	cfg.SyncPasses = 0

	out := &bytes.Buffer{}
	return &Context{
		Context: &app.Context{
			Context:      context.Background(),
			OutputFormat: "table",
			Stdin:        &bytes.Buffer{},
			Stdout:       out,
			Fs:           fs,
			Config:       cfg,
			Logger:       logger,
		},
		Out:  out,
		Logs: hook,
	}
}

// Mount lists path in the mount table
func (c *Context) Mount(t *testing.T, path string) {
	t.Helper()
	line := path + " /mnt minix rw 0 0\n"
	if err := afero.WriteFile(c.Fs, MountsFile, []byte(line), 0644); err != nil {
		t.Fatalf("failed to write mount table: %v", err)
	}
}
