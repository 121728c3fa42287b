package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/types"
	"gopkg.in/yaml.v3"
)

// FileJournal stores each change as its own YAML document in a directory
type FileJournal struct {
	dir string
}

// changeDocument is the on-disk form of a change
type changeDocument struct {
	ID        string `yaml:"id"`
	Zone      string `yaml:"zone"`
	Type      string `yaml:"type"`
	Timestamp string `yaml:"timestamp"`
	Payload   string `yaml:"payload,omitempty"`
}

// NewFileJournal creates a journal rooted at dir, creating it if needed
func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &FileJournal{dir: dir}, nil
}

func (j *FileJournal) path(id string) string {
	return filepath.Join(j.dir, id+".yaml")
}

// Record implements Journal. The document is written to a temporary file
// and linked into place so a change file is never observed half-written or
// replaced.
func (j *FileJournal) Record(zone string, changeType types.ChangeType, payload []byte) (string, error) {
	change := newChange(zone, changeType, payload)

	data, err := yaml.Marshal(&changeDocument{
		ID:        change.ID,
		Zone:      change.Zone,
		Type:      string(change.Type),
		Timestamp: change.Timestamp,
		Payload:   string(change.Payload),
	})
	if err != nil {
		return "", types.Internal("encode change", err)
	}

	tmp, err := os.CreateTemp(j.dir, ".change-*")
	if err != nil {
		return "", types.Internal("create change file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", types.Internal("write change file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", types.Internal("write change file", err)
	}
	if err := os.Link(tmp.Name(), j.path(change.ID)); err != nil {
		return "", types.Internal("commit change file", err)
	}

	metrics.ChangesTotal.WithLabelValues(string(changeType)).Inc()
	log.Logger.Debug().
		Str("component", "journal").
		Str("change_id", change.ID).
		Str("zone", zone).
		Str("type", string(changeType)).
		Msg("change recorded")

	return change.ID, nil
}

// Get implements Journal
func (j *FileJournal) Get(id string) (*types.ChangeRecord, error) {
	if !idPattern.MatchString(id) {
		return nil, notFound(id)
	}

	data, err := os.ReadFile(j.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, types.Internal("read change file", err)
	}

	var doc changeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.Internal("decode change file", err)
	}

	return &types.ChangeRecord{
		ID:        doc.ID,
		Zone:      doc.Zone,
		Type:      types.ChangeType(doc.Type),
		Payload:   []byte(doc.Payload),
		Timestamp: doc.Timestamp,
	}, nil
}

// Close implements Journal
func (j *FileJournal) Close() error {
	return nil
}
