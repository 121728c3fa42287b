package types

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// Error classes returned by zone management operations. Each wraps the
// matching errdefs class so callers can use either errors.Is(err, ErrNotFound)
// or errdefs.IsNotFound(err).
var (
	ErrNotFound      = fmt.Errorf("not found: %w", errdefs.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("already exists: %w", errdefs.ErrAlreadyExists)
	ErrInvalidName   = fmt.Errorf("invalid domain name: %w", errdefs.ErrInvalidArgument)
	ErrInternal      = fmt.Errorf("internal error: %w", errdefs.ErrInternal)
	ErrInvalidRecord = fmt.Errorf("invalid resource record: %w", errdefs.ErrInvalidArgument)
)

// Internal wraps a filesystem or I/O failure as ErrInternal
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
}
