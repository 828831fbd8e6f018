//go:build linux

package repair

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Terminal holds a terminal switched to non-canonical, non-echo input.
// The saved settings are put back by Restore or when a terminating signal
// arrives, in which case the signal is re-raised with its default action.
type Terminal struct {
	fd      int
	saved   unix.Termios
	signals chan os.Signal
	done    chan struct{}
	restore sync.Once
	stop    sync.Once
}

// IsTerminal reports whether fd refers to a terminal
func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

// AcquireTerminal requires both in and out to be terminals and switches in
// to unbuffered, unechoed input
func AcquireTerminal(in, out *os.File) (*Terminal, error) {
	if !IsTerminal(int(in.Fd())) || !IsTerminal(int(out.Fd())) {
		return nil, ErrNeedTerminal
	}

	fd := int(in.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal settings: %w", err)
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("failed to set terminal mode: %w", err)
	}

	t := &Terminal{
		fd:      fd,
		saved:   *saved,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
	signal.Notify(t.signals, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM)
	go t.watch()

	return t, nil
}

func (t *Terminal) watch() {
	select {
	case sig := <-t.signals:
		t.restoreSettings()
		signal.Reset(sig)
		if s, ok := sig.(syscall.Signal); ok {
			unix.Kill(os.Getpid(), s)
		}
	case <-t.done:
	}
}

func (t *Terminal) restoreSettings() {
	t.restore.Do(func() {
		unix.IoctlSetTermios(t.fd, unix.TCSETS, &t.saved)
	})
}

// Restore puts the saved terminal settings back and stops signal handling
func (t *Terminal) Restore() {
	t.stop.Do(func() {
		signal.Stop(t.signals)
		close(t.done)
		t.restoreSettings()
	})
}
