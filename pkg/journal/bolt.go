package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketChanges = []byte("changes")

// BoltJournal stores changes in a BoltDB file, one key per change
type BoltJournal struct {
	db *bolt.DB
}

// NewBoltJournal opens (or creates) dir/journal.db
func NewBoltJournal(dir string) (*BoltJournal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "journal.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketChanges); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketChanges, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltJournal{db: db}, nil
}

// Record implements Journal
func (j *BoltJournal) Record(zone string, changeType types.ChangeType, payload []byte) (string, error) {
	change := newChange(zone, changeType, payload)

	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChanges)
		if b.Get([]byte(change.ID)) != nil {
			return fmt.Errorf("change %s already recorded", change.ID)
		}
		data, err := json.Marshal(change)
		if err != nil {
			return err
		}
		return b.Put([]byte(change.ID), data)
	})
	if err != nil {
		return "", types.Internal("record change", err)
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
func (j *BoltJournal) Get(id string) (*types.ChangeRecord, error) {
	var (
		change types.ChangeRecord
		found  bool
	)
	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketChanges).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &change)
	})
	if err != nil {
		return nil, types.Internal("read change", err)
	}
	if !found {
		return nil, notFound(id)
	}
	return &change, nil
}

// Close closes the database
func (j *BoltJournal) Close() error {
	return j.db.Close()
}
