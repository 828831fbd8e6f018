package probe

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-minixfs/internal/device/devicetest"
	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/apptest"
	"github.com/deploymenttheory/go-minixfs/pkg/app/mkfs"
)

func request() *Request {
	return &Request{Target: app.DeviceTarget{Path: devicetest.ImagePath}}
}

// format creates a file system with mkfs and returns the image fs
func format(t *testing.T, version int) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, devicetest.ImagePath, make([]byte, 1000*types.BlockSize), 0644))
	_, err := mkfs.Handle(apptest.NewContext(t, fs).Context, &mkfs.Request{
		Target:  app.DeviceTarget{Path: devicetest.ImagePath},
		Version: version,
	})
	require.NoError(t, err)
	return fs
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		version int
		want    string
		magic   string
		nameLen int
		state   string
	}{
		{name: "v1", version: 1, want: "v1", magic: "0x138F", nameLen: 30, state: "clean"},
		{name: "v2", version: 2, want: "v2", magic: "0x2478", nameLen: 30, state: "clean"},
		{name: "v3", version: 3, want: "v3", magic: "0x4D5A", nameLen: 60, state: "untracked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := apptest.NewContext(t, format(t, tt.version))
			resp, err := Handle(ctx.Context, request())
			require.NoError(t, err)

			assert.NotEmpty(t, resp.RunID)
			assert.Equal(t, tt.want, resp.Version)
			assert.Equal(t, tt.magic, resp.Magic)
			assert.Equal(t, tt.nameLen, resp.NameLen)
			assert.Equal(t, uint32(1000), resp.Zones)
			assert.Equal(t, tt.state, resp.State)
			assert.False(t, resp.Swapped)
		})
	}
}

func TestHandleErrorState(t *testing.T) {
	fs := format(t, 2)
	data := devicetest.ReadImage(t, fs)
	data[types.SuperblockOffset+types.SbV1StateOffset] = byte(types.StateValid | types.StateError)
	require.NoError(t, afero.WriteFile(fs, devicetest.ImagePath, data, 0644))

	resp, err := Handle(apptest.NewContext(t, fs).Context, request())
	require.NoError(t, err)
	assert.Equal(t, "errors", resp.State)
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fs afero.Fs)
		req   *Request
		code  string
	}{
		{
			name:  "no device",
			setup: func(fs afero.Fs) {},
			req:   &Request{},
			code:  app.ErrCodeInvalidInput,
		},
		{
			name:  "missing device",
			setup: func(fs afero.Fs) {},
			req:   request(),
			code:  app.ErrCodeDeviceAccess,
		},
		{
			name: "zeroed device",
			setup: func(fs afero.Fs) {
				afero.WriteFile(fs, devicetest.ImagePath, make([]byte, 100*types.BlockSize), 0644)
			},
			req:  request(),
			code: app.ErrCodeNotMinix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			tt.setup(fs)
			resp, err := Handle(apptest.NewContext(t, fs).Context, tt.req)
			require.Error(t, err)
			assert.Nil(t, resp)

			var ce *app.CommonError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}
