package repair

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadOnlyPolicy(t *testing.T) {
	var out bytes.Buffer
	p := ReadOnly(&out)

	declined := 0
	p.OnUncorrected(func() { declined++ })

	assert.False(t, p.Decide("Clear", true))
	assert.False(t, p.Decide("Clear", false))
	assert.Equal(t, 2, declined)
	assert.False(t, p.Repairs())
	assert.False(t, p.Interactive())
	assert.Equal(t, "\n\n", out.String())
}

func TestAutomaticPolicy(t *testing.T) {
	var out bytes.Buffer
	p := Automatic(&out)

	declined := 0
	p.OnUncorrected(func() { declined++ })

	assert.True(t, p.Decide("Remove block", true))
	assert.Equal(t, 0, declined)

	assert.False(t, p.Decide("Do you really want to continue", false))
	assert.Equal(t, 1, declined)
	assert.True(t, p.Repairs())
	assert.Equal(t, ModeAutomatic, p.Mode())
}

func TestInteractivePolicy(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      bool
		want     bool
		declined int
		echo     string
	}{
		{name: "yes", input: "y\n", def: false, want: true, echo: " Clear (y/n)? y\n"},
		{name: "no", input: "n\n", def: true, want: false, declined: 1, echo: " Clear (y/n)? n\n"},
		{name: "upper case yes", input: "YES\n", def: false, want: true, echo: " Clear (y/n)? y\n"},
		{name: "garbage keeps default yes", input: "maybe\n", def: true, want: true, echo: " Clear (y/n)? y\n"},
		{name: "garbage keeps default no", input: "maybe\n", def: false, want: false, declined: 1, echo: " Clear (y/n)? n\n"},
		{name: "end of input keeps default", input: "", def: true, want: true, echo: " Clear (y/n)? y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := Interactive(strings.NewReader(tt.input), &out, NewYesNoMatcher("en_US.UTF-8"))

			declined := 0
			p.OnUncorrected(func() { declined++ })

			assert.Equal(t, tt.want, p.Decide("Clear", tt.def))
			assert.Equal(t, tt.declined, declined)
			assert.Equal(t, tt.echo, out.String())
			assert.True(t, p.Interactive())
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "read-only", ModeReadOnly.String())
	assert.Equal(t, "automatic", ModeAutomatic.String())
	assert.Equal(t, "interactive", ModeInteractive.String())
}
