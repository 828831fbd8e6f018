package mkfs

import (
	"fmt"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/internal/types"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// applyDefaults fills the version and name length from cfg. v3 only has
// 60 character names, so it never takes the configured name length.
func (r *Request) applyDefaults(cfg *device.Config) {
	if r.Version == 0 {
		r.Version = cfg.DefaultFsVersion
	}
	if r.NameLen == 0 {
		if r.Version == int(types.V3) {
			r.NameLen = 60
		} else {
			r.NameLen = cfg.DefaultNameLength
		}
	}
}

// Validate validates a creation request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid device", err)
	}

	if r.Version < int(types.V1) || r.Version > int(types.V3) {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unsupported file system version %d", r.Version), nil)
	}
	if _, ok := types.MagicFor(types.Version(r.Version), r.NameLen); !ok {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported name length %d for version %d", r.NameLen, r.Version), nil)
	}

	if r.Blocks != 0 && r.Blocks < types.MinBlocks {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("file system needs at least %d blocks", types.MinBlocks), nil)
	}
	return nil
}
