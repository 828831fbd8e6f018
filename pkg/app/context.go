package app

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-minixfs/internal/device"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Stdin answers interactive repair prompts. Stdout receives the
	// diagnostics the tools print while they work.
	Stdin  io.Reader
	Stdout io.Writer

	Fs     afero.Fs
	Config *device.Config
	Logger logrus.FieldLogger
}

// NewContext creates a new application context on the OS file system
func NewContext() *Context {
	return &Context{
		Context:      context.Background(),
		OutputFormat: "table",
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Fs:           afero.NewOsFs(),
		Config:       device.DefaultConfig(),
		Logger:       logrus.StandardLogger(),
	}
}

// Log records an operational message at debug level
func (c *Context) Log(message string) {
	if c.Logger != nil {
		c.Logger.Debug(message)
	}
}

// MountChecker returns a checker reading the configured mount tables
func (c *Context) MountChecker() *device.MountChecker {
	return device.NewMountChecker(c.Fs, c.Config.MountsFile, c.Config.FallbackMountsFile)
}
