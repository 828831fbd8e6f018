package fsck

import (
	"github.com/deploymenttheory/go-minixfs/pkg/app"
)

// Validate validates a check request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid device", err)
	}
	return nil
}
