package superblock

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createV1SuperblockData builds a v1/v2 style superblock block
func createV1SuperblockData(magic uint16, inodes, nzones uint16, zones uint32, imap, zmap, firstZone uint16, state uint16, endian binary.ByteOrder) []byte {
	data := make([]byte, types.BlockSize)
	endian.PutUint16(data[0:2], inodes)
	endian.PutUint16(data[2:4], nzones)
	endian.PutUint16(data[4:6], imap)
	endian.PutUint16(data[6:8], zmap)
	endian.PutUint16(data[8:10], firstZone)
	endian.PutUint16(data[10:12], 0)
	endian.PutUint32(data[12:16], types.MaxSizeV1)
	endian.PutUint16(data[16:18], magic)
	endian.PutUint16(data[18:20], state)
	endian.PutUint32(data[20:24], zones)
	return data
}

// createV3SuperblockData builds a v3 superblock block
func createV3SuperblockData(inodes, zones uint32, imap, zmap, firstZone, blockSize uint16, endian binary.ByteOrder) []byte {
	data := make([]byte, types.BlockSize)
	endian.PutUint32(data[0:4], inodes)
	endian.PutUint16(data[6:8], imap)
	endian.PutUint16(data[8:10], zmap)
	endian.PutUint16(data[10:12], firstZone)
	endian.PutUint16(data[12:14], 0)
	endian.PutUint32(data[16:20], types.MaxSizeV2)
	endian.PutUint32(data[20:24], zones)
	endian.PutUint16(data[24:26], types.MagicV3)
	endian.PutUint16(data[28:30], blockSize)
	data[30] = 0
	return data
}

func TestNewSuperblockReader(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		wantVersion types.Version
		wantNameLen int
		wantDirSize int
		wantSwapped bool
		wantZones   uint32
	}{
		{
			name:        "v1 14 char names",
			data:        createV1SuperblockData(types.MagicV1, 3360, 10000, 0, 1, 2, 110, types.StateValid, binary.LittleEndian),
			wantVersion: types.V1,
			wantNameLen: 14,
			wantDirSize: 16,
			wantZones:   10000,
		},
		{
			name:        "v1 30 char names",
			data:        createV1SuperblockData(types.MagicV1Name30, 3360, 10000, 0, 1, 2, 110, types.StateValid, binary.LittleEndian),
			wantVersion: types.V1,
			wantNameLen: 30,
			wantDirSize: 32,
			wantZones:   10000,
		},
		{
			name:        "v2 14 char names",
			data:        createV1SuperblockData(types.MagicV2, 3344, 0, 10000, 1, 2, 214, types.StateValid, binary.LittleEndian),
			wantVersion: types.V2,
			wantNameLen: 14,
			wantDirSize: 16,
			wantZones:   10000,
		},
		{
			name:        "v2 30 char names",
			data:        createV1SuperblockData(types.MagicV2Name30, 3344, 0, 10000, 1, 2, 214, types.StateValid, binary.LittleEndian),
			wantVersion: types.V2,
			wantNameLen: 30,
			wantDirSize: 32,
			wantZones:   10000,
		},
		{
			name:        "v2 byte swapped",
			data:        createV1SuperblockData(types.MagicV2Name30, 3344, 0, 10000, 1, 2, 214, types.StateValid, binary.BigEndian),
			wantVersion: types.V2,
			wantNameLen: 30,
			wantDirSize: 32,
			wantSwapped: true,
			wantZones:   10000,
		},
		{
			name:        "v3",
			data:        createV3SuperblockData(3344, 10000, 1, 2, 214, 1024, binary.LittleEndian),
			wantVersion: types.V3,
			wantNameLen: 60,
			wantDirSize: 64,
			wantZones:   10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewSuperblockReader(tt.data)
			require.NoError(t, err)

			g := reader.Geometry()
			assert.Equal(t, tt.wantVersion, reader.Version())
			assert.Equal(t, tt.wantNameLen, g.NameLen)
			assert.Equal(t, tt.wantDirSize, g.DirEntrySize)
			assert.Equal(t, tt.wantSwapped, g.Swapped)
			assert.Equal(t, tt.wantZones, g.Zones)
			assert.NoError(t, reader.Validate())
		})
	}
}

func TestNewSuperblockReaderBadMagic(t *testing.T) {
	data := createV1SuperblockData(0x1234, 3360, 10000, 0, 1, 2, 110, types.StateValid, binary.LittleEndian)

	_, err := NewSuperblockReader(data)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestNewSuperblockReaderTooSmall(t *testing.T) {
	_, err := NewSuperblockReader(make([]byte, 10))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data too small")
}

func TestSuperblockValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *types.Geometry)
		wantErr error
	}{
		{name: "zone size", mutate: func(g *types.Geometry) { g.LogZoneSize = 1 }, wantErr: ErrUnsupportedZoneSize},
		{name: "zero inodes", mutate: func(g *types.Geometry) { g.Inodes = 0 }, wantErr: ErrBadInodeCount},
		{name: "all ones inodes", mutate: func(g *types.Geometry) { g.Inodes = ^uint32(0) }, wantErr: ErrBadInodeCount},
		{name: "inode map too small", mutate: func(g *types.Geometry) { g.Inodes = 8192 }, wantErr: ErrBadImapBlocks},
		{name: "first zone past end", mutate: func(g *types.Geometry) { g.FirstDataZone = g.Zones + 1 }, wantErr: ErrBadFirstDataZone},
		{name: "zone map too small", mutate: func(g *types.Geometry) { g.ZmapBlocks = 1 }, wantErr: ErrBadZmapBlocks},
		{name: "v3 block size", mutate: func(g *types.Geometry) { g.Version = types.V3; g.BlockSize = 4096 }, wantErr: ErrUnsupportedBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewSuperblockReader(createV1SuperblockData(types.MagicV2Name30, 3344, 0, 10000, 1, 2, 214, types.StateValid, binary.LittleEndian))
			require.NoError(t, err)

			tt.mutate(reader.Geometry())
			assert.ErrorIs(t, reader.Validate(), tt.wantErr)
		})
	}
}

func TestSuperblockIsClean(t *testing.T) {
	tests := []struct {
		name  string
		state uint16
		want  bool
	}{
		{name: "valid", state: types.StateValid, want: true},
		{name: "valid with error", state: types.StateValid | types.StateError, want: false},
		{name: "not valid", state: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewSuperblockReader(createV1SuperblockData(types.MagicV1, 3360, 10000, 0, 1, 2, 110, tt.state, binary.LittleEndian))
			require.NoError(t, err)
			assert.Equal(t, tt.want, reader.IsClean())
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "v1", data: createV1SuperblockData(types.MagicV1, 3360, 10000, 0, 1, 2, 110, types.StateValid, binary.LittleEndian)},
		{name: "v2 swapped", data: createV1SuperblockData(types.MagicV2, 3344, 0, 10000, 1, 2, 214, types.StateError, binary.BigEndian)},
		{name: "v3", data: createV3SuperblockData(3344, 10000, 1, 2, 214, 1024, binary.LittleEndian)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewSuperblockReader(tt.data)
			require.NoError(t, err)

			out := make([]byte, types.BlockSize)
			require.NoError(t, Encode(reader.Geometry(), out))
			assert.True(t, bytes.Equal(tt.data, out))
		})
	}
}

func TestEncodeStateUpdate(t *testing.T) {
	data := createV1SuperblockData(types.MagicV2, 3344, 0, 10000, 1, 2, 214, types.StateValid, binary.LittleEndian)
	reader, err := NewSuperblockReader(data)
	require.NoError(t, err)

	g := reader.Geometry()
	g.State |= types.StateError
	require.NoError(t, Encode(g, data))

	assert.Equal(t, types.StateValid|types.StateError, binary.LittleEndian.Uint16(data[18:20]))
}
