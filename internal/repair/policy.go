// Package repair decides whether the checker applies the repairs it finds.
package repair

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/deploymenttheory/go-minixfs/internal/interfaces"
)

// Mode selects how repair decisions are made
type Mode int

const (
	// ModeReadOnly never repairs
	ModeReadOnly Mode = iota
	// ModeAutomatic takes the default answer of every prompt
	ModeAutomatic
	// ModeInteractive asks on the terminal
	ModeInteractive
)

// String returns the mode name used in reports
func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeInteractive:
		return "interactive"
	default:
		return "read-only"
	}
}

// Policy implements the RepairPolicy interface for all three modes
type Policy struct {
	mode        Mode
	in          *bufio.Reader
	out         io.Writer
	matcher     *YesNoMatcher
	uncorrected func()
}

var _ interfaces.RepairPolicy = (*Policy)(nil)

// ReadOnly returns a policy that declines every repair
func ReadOnly(out io.Writer) *Policy {
	return &Policy{mode: ModeReadOnly, out: out}
}

// Automatic returns a policy that applies the default of every prompt
func Automatic(out io.Writer) *Policy {
	return &Policy{mode: ModeAutomatic, out: out}
}

// Interactive returns a policy that reads answers from in
func Interactive(in io.Reader, out io.Writer, matcher *YesNoMatcher) *Policy {
	if matcher == nil {
		matcher = NewYesNoMatcher(LocaleFromEnv())
	}
	return &Policy{
		mode:    ModeInteractive,
		in:      bufio.NewReader(in),
		out:     out,
		matcher: matcher,
	}
}

// Mode returns the decision mode
func (p *Policy) Mode() Mode {
	return p.mode
}

// Repairs reports whether the policy may apply repairs
func (p *Policy) Repairs() bool {
	return p.mode != ModeReadOnly
}

// Interactive reports whether answers come from the terminal
func (p *Policy) Interactive() bool {
	return p.mode == ModeInteractive
}

// OnUncorrected registers fn to run whenever a repair is not applied
func (p *Policy) OnUncorrected(fn func()) {
	p.uncorrected = fn
}

func (p *Policy) declined() {
	if p.uncorrected != nil {
		p.uncorrected()
	}
}

// Decide reports whether the repair described by prompt is applied
func (p *Policy) Decide(prompt string, def bool) bool {
	switch p.mode {
	case ModeReadOnly:
		fmt.Fprintln(p.out)
		p.declined()
		return false
	case ModeAutomatic:
		fmt.Fprintln(p.out)
		if !def {
			p.declined()
		}
		return def
	}

	answer := p.ask(prompt, def)
	if !answer {
		p.declined()
	}
	return answer
}

// ask prompts until a line has been read. Unparsable input keeps the default.
func (p *Policy) ask(prompt string, def bool) bool {
	fmt.Fprintf(p.out, " %s (y/n)? ", prompt)

	line, _ := p.in.ReadString('\n')
	answer := def
	switch p.matcher.Match(strings.TrimSpace(line)) {
	case AnswerYes:
		answer = true
	case AnswerNo:
		answer = false
	}

	if answer {
		fmt.Fprintln(p.out, "y")
	} else {
		fmt.Fprintln(p.out, "n")
	}
	return answer
}
