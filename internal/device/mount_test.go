package device

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMounts = `proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/loop7 /mnt/minix minix rw,relatime 0 0
/srv/with\040space.img /mnt/space minix rw 0 0
`

func TestMountCheckerIsMounted(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proc/self/mounts", []byte(testMounts), 0644))

	checker := NewMountChecker(fs, "/proc/self/mounts", "/etc/mtab")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "mounted", path: "/dev/loop7", want: true},
		{name: "escaped blank", path: "/srv/with space.img", want: true},
		{name: "not mounted", path: "/dev/loop3", want: false},
		{name: "pseudo fs source", path: "proc", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checker.IsMounted(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMountCheckerFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/mtab", []byte(testMounts), 0644))

	checker := NewMountChecker(fs, "/proc/self/mounts", "/etc/mtab")
	got, err := checker.IsMounted("/dev/loop7")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMountCheckerNoTable(t *testing.T) {
	checker := NewMountChecker(afero.NewMemMapFs(), "/proc/self/mounts")
	_, err := checker.IsMounted("/dev/loop7")
	assert.Error(t, err)
}
