package probe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Handle reports whether the device holds a Minix file system and describes it
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	path := req.Target.Path
	runID := uuid.NewString()
	log := ctx.Logger.WithFields(logrus.Fields{"run": runID, "device": path})

	dev, err := device.Open(ctx.Fs, path, false, log)
	if err != nil {
		return nil, app.NewError(app.ErrCodeDeviceAccess, fmt.Sprintf("cannot open %s", path), err)
	}
	defer dev.Close()

	result, err := superblock.Probe(dev)
	if err != nil {
		if errors.Is(err, superblock.ErrNotMinix) {
			return nil, app.NewError(app.ErrCodeNotMinix, path, err)
		}
		return nil, app.NewError(app.ErrCodeDeviceAccess, fmt.Sprintf("cannot probe %s", path), err)
	}

	log.WithField("version", result.Version.String()).Debug("minix file system detected")

	return &Response{
		RunID:     runID,
		Device:    path,
		Version:   result.Version.String(),
		Magic:     fmt.Sprintf("0x%04X", result.Magic),
		Swapped:   result.Swapped,
		NameLen:   result.NameLen,
		Inodes:    result.Inodes,
		Zones:     result.Zones,
		FirstZone: result.FirstZone,
		State:     stateName(result.Geometry),
	}, nil
}

// stateName describes the superblock state flags
func stateName(g *types.Geometry) string {
	switch {
	case !g.HasState():
		return "untracked"
	case g.State&types.StateError != 0:
		return "errors"
	case g.State&types.StateValid != 0:
		return "clean"
	default:
		return "not clean"
	}
}
