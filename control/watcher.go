// control/watcher.go
// Author: momentics <momentics@gmail.com>
//
// Reloads the config file into a ConfigStore when it changes on disk.

package control

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events editors emit per save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher publishes reloaded FileConfig values into a ConfigStore.
type Watcher struct {
	path     string
	store    *ConfigStore
	log      zerolog.Logger
	Debounce time.Duration
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, store *ConfigStore, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		store:    store,
		log:      logger.With().Str("component", "config").Str("path", path).Logger(),
		Debounce: DefaultDebounce,
	}
}

// Reload loads the file once and publishes it. Invalid files are rejected and
// the store keeps its previous values.
func (w *Watcher) Reload() error {
	cfg, err := LoadFile(w.path)
	if err == nil {
		err = ApplyEnv(&cfg)
	}
	if err != nil {
		w.log.Warn().Err(err).Msg("config rejected")
		return err
	}
	w.store.SetConfig(cfg.Flatten())
	w.log.Debug().Msg("config published")
	return nil
}

// Run watches the directory holding the file until ctx is done. The directory
// is watched rather than the file so editors that replace it are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	name := filepath.Base(w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.Debounce, func() {
			if ctx.Err() == nil {
				_ = w.Reload()
			}
		})
	}

	w.log.Debug().Msg("config watcher started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if err == fsnotify.ErrEventOverflow {
				schedule()
				continue
			}
			w.log.Warn().Err(err).Msg("config watch error")
		}
	}
}
