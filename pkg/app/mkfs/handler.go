package mkfs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/internal/services/builder"
	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Handle processes a creation request. Build progress goes to ctx.Stdout.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	req.applyDefaults(ctx.Config)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	path := req.Target.Path
	runID := uuid.NewString()
	log := ctx.Logger.WithFields(logrus.Fields{"run": runID, "device": path})

	// 2. Never format a mounted file system
	mounted, err := ctx.MountChecker().IsMounted(path)
	if err != nil {
		log.WithError(err).Warn("cannot read mount table")
	}
	if mounted {
		return nil, app.NewError(app.ErrCodeMounted,
			fmt.Sprintf("%s is mounted; will not make a filesystem here!", path), nil)
	}

	// 3. Open the device
	dev, err := device.Open(ctx.Fs, path, true, log)
	if err != nil {
		return nil, app.NewError(app.ErrCodeDeviceAccess, fmt.Sprintf("unable to open %s", path), err)
	}
	defer dev.Close()

	check := req.CheckBlocks
	if check && !dev.IsBlockDevice() {
		log.Info("not a block device, bad block check disabled")
		check = false
	}

	// 4. Build
	result, err := builder.NewService(dev, builder.Options{
		Version:       types.Version(req.Version),
		NameLen:       req.NameLen,
		Blocks:        req.Blocks,
		Inodes:        req.Inodes,
		CheckBlocks:   check,
		ChunkBlocks:   ctx.Config.CheckChunkBlocks,
		BadBlocksFile: req.BadBlocksFile,
		Fs:            ctx.Fs,
		Output:        ctx.Stdout,
		Logger:        log,
		Uid:           uint16(os.Getuid()),
		Gid:           uint16(os.Getgid()),
	}).Build(ctx)
	if err != nil {
		return nil, buildError(err)
	}

	resp := newResponse(runID, path, result.Geometry)
	resp.BadBlocks = result.BadBlocks
	resp.Checked = check
	resp.Duration = time.Since(startTime)

	ctx.Log(fmt.Sprintf("Created %s file system on %s in %v", resp.Version, path, resp.Duration))
	return resp, nil
}

// buildError classifies a build failure
func buildError(err error) error {
	switch {
	case errors.Is(err, builder.ErrFilesystemTooBig):
		return app.NewError(app.ErrCodeTooBig, "cannot make file system", err)
	case errors.Is(err, builder.ErrTooFewBlocks),
		errors.Is(err, builder.ErrNoDataZones),
		errors.Is(err, builder.ErrUnsupportedFormat),
		errors.Is(err, builder.ErrBadBlockNumber):
		return app.NewError(app.ErrCodeInvalidInput, "cannot make file system", err)
	case errors.Is(err, builder.ErrBadBlockList),
		errors.Is(err, builder.ErrDeviceSize):
		return app.NewError(app.ErrCodeDeviceAccess, "cannot make file system", err)
	default:
		return app.NewError(app.ErrCodeFatal, "cannot make file system", err)
	}
}
