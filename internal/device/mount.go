package device

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// MountChecker finds out whether a device is listed in the mount table
type MountChecker struct {
	fs    afero.Fs
	files []string
}

// NewMountChecker reads the mount table from the first readable file in files
func NewMountChecker(fs afero.Fs, files ...string) *MountChecker {
	return &MountChecker{fs: fs, files: files}
}

// IsMounted reports whether devicePath appears as a mount source. Entries
// match by path, by resolved symlink or by device number.
func (m *MountChecker) IsMounted(devicePath string) (bool, error) {
	sources, err := m.sources()
	if err != nil {
		return false, err
	}

	resolved := devicePath
	if r, err := filepath.EvalSymlinks(devicePath); err == nil {
		resolved = r
	}

	for _, source := range sources {
		if source == devicePath || source == resolved {
			return true, nil
		}
		if !strings.HasPrefix(source, "/") {
			continue
		}
		if r, err := filepath.EvalSymlinks(source); err == nil && r == resolved {
			return true, nil
		}
		if SameDevice(source, devicePath) {
			return true, nil
		}
	}
	return false, nil
}

// sources returns the first field of each mount table line
func (m *MountChecker) sources() ([]string, error) {
	var lastErr error
	for _, name := range m.files {
		if name == "" {
			continue
		}
		f, err := m.fs.Open(name)
		if err != nil {
			lastErr = err
			continue
		}
		defer f.Close()

		var sources []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			sources = append(sources, unescapeMountField(fields[0]))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read mount table %s: %w", name, err)
		}
		return sources, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to open mount table: %w", lastErr)
	}
	return nil, nil
}

// unescapeMountField decodes the octal escapes used for blanks in mount tables
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}
