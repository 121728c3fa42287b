package zonestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a zone file must be quiet before it is reloaded
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads zone files as they change on disk until ctx is cancelled.
// Events for a file are coalesced for debounce before it is re-parsed; a
// file that disappears is unloaded.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(debounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			s.reload(path)
		})
	}

	log.Logger.Info().
		Str("component", "zonestore").
		Str("dir", s.dir).
		Dur("debounce", debounce).
		Msg("Watching zone files")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isZoneFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Logger.Warn().
				Str("component", "zonestore").
				Err(err).
				Msg("Zone watcher error")
		}
	}
}

// reload brings the store in line with the current state of path
func (s *Store) reload(path string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if zone, ok := s.unloadFile(path); ok {
			s.updateGauges()
			log.Logger.Info().
				Str("component", "zonestore").
				Str("zone", zone.Origin).
				Str("file", path).
				Msg("Zone unloaded")
		}
		return
	}

	zone, err := s.loadFile(path)
	if err != nil {
		metrics.ZoneLoadErrors.Inc()
		log.Logger.Warn().
			Str("component", "zonestore").
			Str("file", path).
			Err(err).
			Msg("Zone reload failed, keeping previous version")
		return
	}
	s.updateGauges()
	log.Logger.Info().
		Str("component", "zonestore").
		Str("zone", zone.Origin).
		Int("records", len(zone.Records)).
		Msg("Zone reloaded")
}
