package fsck

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-minixfs/internal/repair"
	"github.com/deploymenttheory/go-minixfs/internal/services/checker"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Handle processes a check request. Diagnostics go to ctx.Stdout as the
// check runs; the returned response summarises the run.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	path := req.Target.Path
	resp := &Response{
		RunID:  uuid.NewString(),
		Device: path,
		Mode:   req.Mode().String(),
	}
	log := ctx.Logger.WithFields(logrus.Fields{"run": resp.RunID, "device": path})
	out := ctx.Stdout

	// 2. Refuse mounted file systems unless told otherwise on a terminal
	if !confirmMounted(ctx, path, log) {
		fmt.Fprintf(out, "check aborted.\n")
		resp.Aborted = true
		resp.Duration = time.Since(startTime)
		return resp, nil
	}

	if req.Mode() == repair.ModeInteractive && !(isTerminal(ctx.Stdin) && isTerminal(ctx.Stdout)) {
		return nil, app.NewError(app.ErrCodeNeedTerminal, "cannot check", repair.ErrNeedTerminal)
	}

	// 3. Open the device and read the superblock
	dev, err := device.Open(ctx.Fs, path, req.Repairs(), log)
	if err != nil {
		return nil, app.NewError(app.ErrCodeDeviceAccess, fmt.Sprintf("cannot open %s", path), err)
	}
	defer dev.Close()
	device.SyncAll(ctx.Config.SyncPasses)

	session, err := checker.NewSession(dev, checker.Options{
		Policy:   newPolicy(ctx, req.Mode()),
		Output:   out,
		Logger:   log,
		List:     req.List,
		Verbose:  req.Verbose,
		WarnMode: req.WarnMode,
		MaxDepth: ctx.Config.MaxDepth,
	})
	if err != nil {
		return nil, sessionError(err)
	}
	resp.Version = session.Geometry().Version.String()
	resp.Clean = session.IsClean()

	// 4. Clean file systems are skipped unless forced
	if resp.Clean && !req.Force {
		if req.Repairs() {
			fmt.Fprintf(out, "%s is clean, no check.\n", path)
		}
		log.Info("file system is clean, check skipped")
		resp.Skipped = true
		resp.Duration = time.Since(startTime)
		return resp, nil
	}

	if req.Force {
		fmt.Fprintf(out, "Forcing filesystem check on %s.\n", path)
	} else if req.Repairs() {
		fmt.Fprintf(out, "Filesystem on %s is dirty, needs checking.\n", path)
	}

	// 5. Load the tables and run the check
	if err := session.LoadTables(); err != nil {
		return nil, app.NewError(app.ErrCodeFatal, "cannot load tables", err)
	}
	if req.ShowSuper {
		session.ShowSuperblock()
	}

	if req.Mode() == repair.ModeInteractive {
		term, err := repair.AcquireTerminal(ctx.Stdin.(*os.File), ctx.Stdout.(*os.File))
		if err != nil {
			return nil, app.NewError(app.ErrCodeNeedTerminal, "cannot check", err)
		}
		defer term.Restore()
	}

	if err := session.Check(); err != nil {
		return nil, app.NewError(app.ErrCodeFatal, "check failed", err)
	}
	if req.Verbose {
		session.PrintSummary()
	}

	// 6. Write back what changed
	if err := session.Commit(); err != nil {
		return nil, app.NewError(app.ErrCodeDeviceAccess, "write failed", err)
	}
	if session.Changed() {
		device.SyncAll(ctx.Config.SyncPasses)
	}

	usage := session.Usage()
	stats := session.Stats()
	resp.Usage = &usage
	resp.Files = &stats
	resp.Changed = session.Changed()
	resp.Uncorrected = session.Uncorrected()
	resp.ExitStatus = app.CheckStatus(resp.Changed, resp.Uncorrected)
	resp.Duration = time.Since(startTime)

	counters := dev.Stats()
	log.WithFields(logrus.Fields{
		"changed":        resp.Changed,
		"uncorrected":    resp.Uncorrected,
		"blocks_read":    counters.BlocksRead,
		"blocks_written": counters.BlocksWritten,
		"read_errors":    counters.ReadErrors,
		"duration":       resp.Duration,
	}).Info("check completed")

	return resp, nil
}

// confirmMounted reports whether the check may go ahead. A mounted device is
// only checked when the user agrees on a terminal.
func confirmMounted(ctx *app.Context, path string, log logrus.FieldLogger) bool {
	mounted, err := ctx.MountChecker().IsMounted(path)
	if err != nil {
		log.WithError(err).Warn("cannot read mount table")
		return true
	}
	if !mounted {
		return true
	}

	fmt.Fprintf(ctx.Stdout, "%s is mounted.\t ", path)
	if !isTerminal(ctx.Stdin) || !isTerminal(ctx.Stdout) {
		return false
	}
	ask := repair.Interactive(ctx.Stdin, ctx.Stdout, nil)
	return ask.Decide("Do you really want to continue", false)
}

func newPolicy(ctx *app.Context, mode repair.Mode) *repair.Policy {
	switch mode {
	case repair.ModeAutomatic:
		return repair.Automatic(ctx.Stdout)
	case repair.ModeInteractive:
		return repair.Interactive(ctx.Stdin, ctx.Stdout, nil)
	default:
		return repair.ReadOnly(ctx.Stdout)
	}
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && repair.IsTerminal(int(f.Fd()))
}

var superblockErrors = []error{
	superblock.ErrBadMagic,
	superblock.ErrUnsupportedZoneSize,
	superblock.ErrBadInodeCount,
	superblock.ErrBadImapBlocks,
	superblock.ErrBadFirstDataZone,
	superblock.ErrBadZmapBlocks,
	superblock.ErrUnsupportedBlock,
}

// sessionError classifies a failure to start a check
func sessionError(err error) error {
	for _, target := range superblockErrors {
		if errors.Is(err, target) {
			return app.NewError(app.ErrCodeBadSuperblock, "cannot check", err)
		}
	}
	return app.NewError(app.ErrCodeDeviceAccess, "cannot check", err)
}
