package dispatch

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher re-reads a dispatcher config file whenever it changes and
// applies the dynamic fields (default execution mode, debug logging) to a
// live Dispatcher. Static fields such as the error threshold and taint log
// capacity are fixed at construction and ignored on reload.
type ConfigWatcher struct {
	path       string
	dispatcher *Dispatcher
	logger     Logger
	watcher    *fsnotify.Watcher
	done       chan struct{}
	loopDone   chan struct{}
}

// NewConfigWatcher creates a watcher for the config file at path. Call Start
// to begin watching.
func NewConfigWatcher(path string, d *Dispatcher, logger Logger) *ConfigWatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ConfigWatcher{
		path:       filepath.Clean(path),
		dispatcher: d,
		logger:     logger,
	}
}

// Start begins watching the config file's directory. Watching the directory
// rather than the file itself keeps the watch alive across editors and
// config-management tools that replace the file on save.
func (w *ConfigWatcher) Start() error {
	if w.watcher != nil {
		return ErrWatcherAlreadyStarted
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config directory: %w", err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.loopDone = make(chan struct{})
	go w.loop(watcher, w.done, w.loopDone)

	w.logger.Info("Config watcher started", "path", w.path)
	return nil
}

// Stop stops watching and waits for the watch loop to exit before releasing
// the watcher. It is safe to call once after a successful Start.
func (w *ConfigWatcher) Stop() error {
	if w.watcher == nil {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	<-w.loopDone
	w.watcher = nil
	return err
}

// loop receives the watcher and channels as arguments rather than reading
// them from the struct, so Stop can clear the fields without racing it.
func (w *ConfigWatcher) loop(watcher *fsnotify.Watcher, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)
		case <-done:
			return
		}
	}
}

// reload re-reads the config file and applies its dynamic fields. A reload
// that fails to parse or validate leaves the dispatcher untouched.
func (w *ConfigWatcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Error("Config reload failed", "path", w.path, "error", err)
		return
	}

	mode, err := ParseExecutionMode(cfg.DefaultMode)
	if err != nil {
		w.logger.Error("Config reload failed", "path", w.path, "error", err)
		return
	}
	if err := w.dispatcher.SetExecutionMode(mode); err != nil {
		w.logger.Error("Config reload failed", "path", w.path, "error", err)
		return
	}
	w.dispatcher.EnableDebugLogging(cfg.DebugLogging)

	w.logger.Info("Config reloaded", "path", w.path, "mode", cfg.DefaultMode, "debugLogging", cfg.DebugLogging)
}
