package fsck

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-minixfs/internal/device/devicetest"
	"github.com/deploymenttheory/go-minixfs/internal/repair"
	"github.com/deploymenttheory/go-minixfs/internal/services/builder"
	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/apptest"
)

const stateOffset = types.SuperblockOffset + types.SbV1StateOffset

func newFilesystem(t *testing.T, version types.Version, nameLen int) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	dev := devicetest.NewImage(t, fs, 2000, true)
	logger, _ := test.NewNullLogger()

	_, err := builder.NewService(dev, builder.Options{
		Version: version,
		NameLen: nameLen,
		Output:  &bytes.Buffer{},
		Logger:  logger,
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
	}).Build(context.Background())
	require.NoError(t, err)
	return fs
}

// patchImage applies fn to the image bytes
func patchImage(t *testing.T, fs afero.Fs, fn func(data []byte)) {
	t.Helper()
	data := devicetest.ReadImage(t, fs)
	fn(data)
	require.NoError(t, afero.WriteFile(fs, devicetest.ImagePath, data, 0644))
}

func markDirty(data []byte) {
	data[stateOffset] = byte(types.StateValid | types.StateError)
}

func request() *Request {
	return &Request{Target: app.DeviceTarget{Path: devicetest.ImagePath}}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var ce *app.CommonError
	require.True(t, errors.As(err, &ce), "expected CommonError, got %v", err)
	return ce.Code
}

func TestHandleCleanFilesystem(t *testing.T) {
	tests := []struct {
		name      string
		automatic bool
		force     bool
		skipped   bool
		output    string
	}{
		{name: "read-only skips quietly", skipped: true},
		{name: "repair reports clean", automatic: true, skipped: true, output: "/images/minix.img is clean, no check.\n"},
		{name: "forced", force: true, output: "Forcing filesystem check on /images/minix.img.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFilesystem(t, types.V2, 30)
			ctx := apptest.NewContext(t, fs)

			req := request()
			req.Automatic = tt.automatic
			req.Force = tt.force

			resp, err := Handle(ctx.Context, req)
			require.NoError(t, err)
			assert.True(t, resp.Clean)
			assert.Equal(t, tt.skipped, resp.Skipped)
			assert.Equal(t, app.ExitOK, resp.ExitStatus)
			assert.Equal(t, tt.output, ctx.Out.String())
			assert.NotEmpty(t, resp.RunID)
			assert.Equal(t, "v2", resp.Version)

			if tt.skipped {
				assert.Nil(t, resp.Usage)
			} else {
				require.NotNil(t, resp.Usage)
				assert.Equal(t, uint32(2000), resp.Usage.Zones)
			}
		})
	}
}

func TestHandleV3IsAlwaysChecked(t *testing.T) {
	fs := newFilesystem(t, types.V3, 60)
	ctx := apptest.NewContext(t, fs)

	resp, err := Handle(ctx.Context, request())
	require.NoError(t, err)
	assert.False(t, resp.Skipped)
	assert.False(t, resp.Clean)
	assert.Equal(t, app.ExitOK, resp.ExitStatus)
}

func TestHandleDirtyFilesystem(t *testing.T) {
	fs := newFilesystem(t, types.V1, 30)
	patchImage(t, fs, markDirty)

	ctx := apptest.NewContext(t, fs)
	req := request()
	req.Automatic = true

	resp, err := Handle(ctx.Context, req)
	require.NoError(t, err)
	assert.Equal(t, "Filesystem on /images/minix.img is dirty, needs checking.\n", ctx.Out.String())
	assert.False(t, resp.Changed)
	assert.Equal(t, app.ExitOK, resp.ExitStatus)

	// The run marked the file system clean again.
	data := devicetest.ReadImage(t, fs)
	assert.Equal(t, byte(types.StateValid), data[stateOffset])

	ctx = apptest.NewContext(t, fs)
	resp, err = Handle(ctx.Context, req)
	require.NoError(t, err)
	assert.True(t, resp.Skipped)
}

func TestHandleRepairs(t *testing.T) {
	strayInode := func(data []byte) {
		markDirty(data)
		// Inode 5 is marked in use but nothing references it.
		data[2*types.BlockSize] |= 1 << 5
	}

	t.Run("read-only leaves errors", func(t *testing.T) {
		fs := newFilesystem(t, types.V2, 30)
		patchImage(t, fs, strayInode)
		ctx := apptest.NewContext(t, fs)

		resp, err := Handle(ctx.Context, request())
		require.NoError(t, err)
		assert.Contains(t, ctx.Out.String(), "Inode 5 not used, marked used in the bitmap.")
		assert.True(t, resp.Uncorrected)
		assert.False(t, resp.Changed)
		assert.Equal(t, app.ExitUncorrected, resp.ExitStatus)
		assert.Equal(t, "errors", resp.Status())
	})

	t.Run("automatic repairs", func(t *testing.T) {
		fs := newFilesystem(t, types.V2, 30)
		patchImage(t, fs, strayInode)
		ctx := apptest.NewContext(t, fs)

		req := request()
		req.Automatic = true
		req.Verbose = true
		resp, err := Handle(ctx.Context, req)
		require.NoError(t, err)
		assert.True(t, resp.Changed)
		assert.False(t, resp.Uncorrected)
		assert.Equal(t, app.ExitChanged, resp.ExitStatus)
		assert.Contains(t, ctx.Out.String(), "FILE SYSTEM HAS BEEN CHANGED")
		assert.Contains(t, ctx.Out.String(), "inodes used")
		require.NotNil(t, resp.Files)
		assert.Equal(t, uint32(1), resp.Files.Directories)

		data := devicetest.ReadImage(t, fs)
		assert.Zero(t, data[2*types.BlockSize]&(1<<5))
		assert.Equal(t, byte(types.StateValid), data[stateOffset])
	})
}

func TestHandleShowSuperblock(t *testing.T) {
	fs := newFilesystem(t, types.V1, 14)
	ctx := apptest.NewContext(t, fs)

	req := request()
	req.Force = true
	req.ShowSuper = true
	_, err := Handle(ctx.Context, req)
	require.NoError(t, err)
	assert.Contains(t, ctx.Out.String(), "2000 blocks\n")
	assert.Contains(t, ctx.Out.String(), "namelen=14\n")
}

func TestHandleMounted(t *testing.T) {
	fs := newFilesystem(t, types.V2, 30)
	ctx := apptest.NewContext(t, fs)
	ctx.Mount(t, devicetest.ImagePath)

	req := request()
	req.Automatic = true
	resp, err := Handle(ctx.Context, req)
	require.NoError(t, err)
	assert.True(t, resp.Aborted)
	assert.Equal(t, app.ExitOK, resp.ExitStatus)
	assert.Equal(t, "/images/minix.img is mounted.\t check aborted.\n", ctx.Out.String())
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) afero.Fs
		req    func() *Request
		code   string
		status app.ExitStatus
		cause  error
	}{
		{
			name:   "no device",
			setup:  func(t *testing.T) afero.Fs { return afero.NewMemMapFs() },
			req:    func() *Request { return &Request{} },
			code:   app.ErrCodeInvalidInput,
			status: app.ExitUsage,
		},
		{
			name:   "missing device",
			setup:  func(t *testing.T) afero.Fs { return afero.NewMemMapFs() },
			req:    request,
			code:   app.ErrCodeDeviceAccess,
			status: app.ExitError,
		},
		{
			name: "bad magic",
			setup: func(t *testing.T) afero.Fs {
				fs := afero.NewMemMapFs()
				devicetest.NewImage(t, fs, 100, false)
				return fs
			},
			req:    request,
			code:   app.ErrCodeBadSuperblock,
			status: app.ExitError,
		},
		{
			name:  "interactive without a terminal",
			setup: func(t *testing.T) afero.Fs { return newFilesystem(t, types.V2, 30) },
			req: func() *Request {
				r := request()
				r.Repair = true
				return r
			},
			code:   app.ErrCodeNeedTerminal,
			status: app.ExitError,
			cause:  repair.ErrNeedTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := apptest.NewContext(t, tt.setup(t))
			resp, err := Handle(ctx.Context, tt.req())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.code, errorCode(t, err))
			assert.Equal(t, tt.status, app.ExitStatusFor(err))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestRequestMode(t *testing.T) {
	tests := []struct {
		name      string
		repair    bool
		automatic bool
		mode      repair.Mode
		writable  bool
	}{
		{name: "default", mode: repair.ModeReadOnly},
		{name: "repair", repair: true, mode: repair.ModeInteractive, writable: true},
		{name: "automatic", automatic: true, mode: repair.ModeAutomatic, writable: true},
		{name: "both", repair: true, automatic: true, mode: repair.ModeAutomatic, writable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Request{Repair: tt.repair, Automatic: tt.automatic}
			assert.Equal(t, tt.mode, r.Mode())
			assert.Equal(t, tt.writable, r.Repairs())
		})
	}
}
