package journal

import (
	"fmt"
	"regexp"
	"time"

	"github.com/cuemby/zoned/pkg/types"
)

// Journal is an append-only log of management changes, queryable by id
type Journal interface {
	// Record stores a new change and returns its id
	Record(zone string, changeType types.ChangeType, payload []byte) (string, error)

	// Get returns a change by id, or an error wrapping types.ErrNotFound
	Get(id string) (*types.ChangeRecord, error)

	Close() error
}

// Backend names accepted by Open
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Open creates the journal backend named by backend, storing data in dir
func Open(backend, dir string) (Journal, error) {
	switch backend {
	case "", BackendFile:
		return NewFileJournal(dir)
	case BackendBolt:
		return NewBoltJournal(dir)
	}
	return nil, fmt.Errorf("unknown journal backend %q", backend)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func newChange(zone string, changeType types.ChangeType, payload []byte) *types.ChangeRecord {
	return &types.ChangeRecord{
		ID:        types.NewID(),
		Zone:      zone,
		Type:      changeType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func notFound(id string) error {
	return fmt.Errorf("change %s: %w", id, types.ErrNotFound)
}
