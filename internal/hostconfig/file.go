package hostconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const defaultDebounce = 250 * time.Millisecond

// File serves the top-level keys of a YAML document. Reload swaps the
// values atomically; a file that fails to parse leaves the old values.
type File struct {
	path     string
	debounce time.Duration

	mu     sync.RWMutex
	values map[string]any
}

// OpenFile reads path and returns a File host over it.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, debounce: defaultDebounce}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Lookup(name string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[name]
	return v, ok
}

// Reload re-reads the file.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read host config %s: %w", f.path, err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse host config %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()

	log.Debug().Str("path", f.path).Int("keys", len(values)).Msg("Host config loaded")
	return nil
}

// Watch reloads the file whenever it is written or replaced until ctx is
// done. The parent directory is watched so editors that rename over the
// file are picked up.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", f.path, err)
	}

	log.Info().Str("path", f.path).Msg("Watching host config for changes")
	go f.watchLoop(ctx, watcher)
	return nil
}

func (f *File) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(f.path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("path", f.path).Msg("Host config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(f.debounce, func() {
				if err := f.Reload(); err != nil {
					log.Error().Err(err).Msg("Host config reload failed, keeping previous values")
					return
				}
				log.Info().Str("path", f.path).Msg("Host config reloaded")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Host config watcher error")
		}
	}
}
