package inodes

import (
	"encoding/binary"
	"testing"

	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGeometry(version types.Version, inodes uint32, endian binary.ByteOrder) *types.Geometry {
	return &types.Geometry{Version: version, Inodes: inodes, ByteOrder: endian}
}

func TestInodeTableGetPut(t *testing.T) {
	tests := []struct {
		name    string
		version types.Version
		endian  binary.ByteOrder
		zones   int
	}{
		{name: "v1", version: types.V1, endian: binary.LittleEndian, zones: 9},
		{name: "v2", version: types.V2, endian: binary.LittleEndian, zones: 10},
		{name: "v2 big endian", version: types.V2, endian: binary.BigEndian, zones: 10},
		{name: "v3", version: types.V3, endian: binary.LittleEndian, zones: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := createGeometry(tt.version, 64, tt.endian)
			table, err := NewInodeTable(make([]byte, g.InodeTableSize()), g)
			require.NoError(t, err)

			inode := types.Inode{
				Mode:   types.ModeDir | 0755,
				Uid:    1000,
				Gid:    100,
				Nlinks: 2,
				Size:   64,
				Atime:  1700000000,
				Mtime:  1700000000,
				Ctime:  1700000000,
			}
			for i := 0; i < tt.zones; i++ {
				inode.Zones[i] = uint32(200 + i)
			}

			table.Put(5, inode)
			got := table.Get(5)
			assert.Equal(t, inode, got)
			assert.Equal(t, types.Inode{}, table.Get(4))
			assert.Equal(t, types.Inode{}, table.Get(6))
		})
	}
}

func TestInodeTableOutOfRange(t *testing.T) {
	g := createGeometry(types.V2, 16, binary.LittleEndian)
	table, err := NewInodeTable(make([]byte, g.InodeTableSize()), g)
	require.NoError(t, err)

	table.Put(0, types.Inode{Mode: types.ModeRegular})
	table.Put(17, types.Inode{Mode: types.ModeRegular})

	assert.Equal(t, types.Inode{}, table.Get(0))
	assert.Equal(t, types.Inode{}, table.Get(17))
	assert.Equal(t, uint32(16), table.Count())
}

func TestNewInodeTableTooSmall(t *testing.T) {
	g := createGeometry(types.V1, 64, binary.LittleEndian)
	_, err := NewInodeTable(make([]byte, 100), g)
	assert.Error(t, err)
}

func TestV1InodeLayout(t *testing.T) {
	data := make([]byte, 32)
	inode := types.Inode{Mode: types.ModeRegular | 0644, Uid: 7, Gid: 3, Nlinks: 1, Size: 4096, Mtime: 42}
	inode.Zones[0] = 300
	inode.Zones[8] = 900

	EncodeInode(data, inode, types.V1, binary.LittleEndian)

	assert.Equal(t, uint16(types.ModeRegular|0644), binary.LittleEndian.Uint16(data[0:2]))
	assert.Equal(t, uint32(4096), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint8(3), data[12])
	assert.Equal(t, uint8(1), data[13])
	assert.Equal(t, uint16(300), binary.LittleEndian.Uint16(data[14:16]))
	assert.Equal(t, uint16(900), binary.LittleEndian.Uint16(data[30:32]))
}

func TestIndirectBlock(t *testing.T) {
	tests := []struct {
		name    string
		version types.Version
		wantLen uint32
	}{
		{name: "v1", version: types.V1, wantLen: 512},
		{name: "v2", version: types.V2, wantLen: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := createGeometry(tt.version, 16, binary.LittleEndian)
			block := NewIndirectBlock(make([]byte, types.BlockSize), g)

			assert.Equal(t, tt.wantLen, block.Len())
			block.Set(0, 1234)
			block.Set(block.Len()-1, 4321)
			assert.Equal(t, uint32(1234), block.Get(0))
			assert.Equal(t, uint32(4321), block.Get(block.Len()-1))
			assert.Equal(t, uint32(0), block.Get(1))
		})
	}
}
