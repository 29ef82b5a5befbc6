package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
)

// reloadDebounce absorbs the burst of events an editor save produces.
const reloadDebounce = 150 * time.Millisecond

// Watcher owns the live configuration. It reloads the file on change and
// serves as the rank.FlagSource, so flags are read at call time.
type Watcher struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	resolved completion.Config
	onReload []func(*Config)

	fsw  *fsnotify.Watcher
	stop context.CancelFunc
	wg   sync.WaitGroup
}

var _ rank.FlagSource = (*Watcher)(nil)

// NewWatcher resolves cfg, which was loaded from path. An empty path means
// the config did not come from a file and Start does nothing.
func NewWatcher(path string, cfg *Config) (*Watcher, error) {
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	if path != "" {
		path = filepath.Clean(path)
	}
	return &Watcher{path: path, config: cfg, resolved: resolved}, nil
}

// Path returns the watched file, or "".
func (w *Watcher) Path() string { return w.path }

// Config returns the current configuration. Callers must not modify it.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Types returns the resolved type configuration.
func (w *Watcher) Types() completion.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolved
}

// Flags implements rank.FlagSource.
func (w *Watcher) Flags() rank.Flags {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config.Flags()
}

// OnReload registers fn to run after every successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Reload re-reads the file. A config whose types fail to resolve is
// rejected and the previous one stays active.
func (w *Watcher) Reload() error {
	if w.path == "" {
		return nil
	}
	cfg, err := LoadConfig(w.path)
	if err != nil {
		return err
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		log.Errorf("Keeping previous config, %s is invalid: %v", w.path, err)
		return err
	}

	w.mu.Lock()
	w.config = cfg
	w.resolved = resolved
	hooks := append([]func(*Config){}, w.onReload...)
	w.mu.Unlock()

	log.Debugf("Reloaded config from %s", w.path)
	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}

// Start watches the config file's directory until ctx ends or Close is
// called. Editors often replace the file on save, so the directory is
// watched instead of the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.stop = cancel

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := w.Reload(); err != nil {
					log.Warnf("Config reload failed: %v", err)
				}
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("Config watcher error: %v", err)
		}
	}
}

// Close stops the file watcher.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	w.stop()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
