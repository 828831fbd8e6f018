package device

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-minixfs/internal/types"
)

func createImageFile(t *testing.T, fs afero.Fs, blocks int) string {
	t.Helper()
	data := make([]byte, blocks*types.BlockSize)
	for b := 0; b < blocks; b++ {
		data[b*types.BlockSize] = byte(b)
	}
	require.NoError(t, afero.WriteFile(fs, "/images/minix.img", data, 0644))
	return "/images/minix.img"
}

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestBlockDeviceReadBlock(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := createImageFile(t, fs, 10)

	dev, err := Open(fs, path, false, testLogger())
	require.NoError(t, err)
	defer dev.Close()

	t.Run("block zero is never read", func(t *testing.T) {
		buf, err := dev.ReadBlock(0)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, types.BlockSize), buf)
	})

	t.Run("regular block", func(t *testing.T) {
		buf, err := dev.ReadBlock(7)
		require.NoError(t, err)
		assert.Equal(t, byte(7), buf[0])
	})

	t.Run("past the end yields zeros and an error", func(t *testing.T) {
		buf, err := dev.ReadBlock(12)
		assert.Error(t, err)
		assert.Equal(t, make([]byte, types.BlockSize), buf)
	})

	stats := dev.Stats()
	assert.Equal(t, int64(1), stats.BlocksRead)
	assert.Equal(t, int64(1), stats.ReadErrors)
}

func TestBlockDeviceReadBlocks(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := createImageFile(t, fs, 10)

	dev, err := Open(fs, path, false, testLogger())
	require.NoError(t, err)
	defer dev.Close()

	got, err := dev.ReadBlocks(0, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	got, err = dev.ReadBlocks(8, 4)
	assert.Error(t, err)
	assert.Equal(t, 2, got)
}

func TestBlockDeviceWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := createImageFile(t, fs, 10)

	t.Run("read only", func(t *testing.T) {
		dev, err := Open(fs, path, false, testLogger())
		require.NoError(t, err)
		defer dev.Close()

		assert.True(t, dev.IsReadOnly())
		assert.ErrorIs(t, dev.WriteBlock(3, make([]byte, types.BlockSize)), ErrReadOnly)
	})

	t.Run("writable", func(t *testing.T) {
		dev, err := Open(fs, path, true, testLogger())
		require.NoError(t, err)
		defer dev.Close()

		block := bytes.Repeat([]byte{0xAB}, types.BlockSize)
		require.NoError(t, dev.WriteBlock(3, block))
		require.NoError(t, dev.WriteBlock(0, block))
		require.NoError(t, dev.Sync())

		got, err := dev.ReadBlock(3)
		require.NoError(t, err)
		assert.Equal(t, block, got)

		raw := make([]byte, 1)
		_, err = dev.ReadAt(raw, 0)
		require.NoError(t, err)
		assert.Equal(t, byte(0), raw[0])

		assert.Error(t, dev.WriteBlock(4, make([]byte, 10)))
	})
}

func TestBlockDeviceSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := createImageFile(t, fs, 10)

	dev, err := Open(fs, path, false, testLogger())
	require.NoError(t, err)
	defer dev.Close()

	size, err := dev.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10*types.BlockSize), size)
	assert.Equal(t, path, dev.DevicePath())
	assert.False(t, dev.IsBlockDevice())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "/dev/nothing", false, testLogger())
	assert.Error(t, err)
}

func TestCountBlocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks int
	}{
		{name: "empty", blocks: 0},
		{name: "one block", blocks: 1},
		{name: "ten blocks", blocks: 10},
		{name: "power of two", blocks: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(make([]byte, tt.blocks*types.BlockSize))
			assert.Equal(t, int64(tt.blocks), CountBlocks(r))
		})
	}
}
