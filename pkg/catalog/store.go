package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/fsnotify/fsnotify"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
)

// reloadDelay lets editors finish writing before the file is read
const reloadDelay = 100 * time.Millisecond

// Store holds the active catalog and swaps it when the file on disk changes.
// A catalog that fails validation on reload is rejected and the previous one stays active.
type Store struct {
	path     string
	logger   ectologger.Logger
	current  atomic.Pointer[Catalog]
	digest   string
	watcher  *fsnotify.Watcher
	onReload []func(*Catalog)
	mu       sync.Mutex
}

// NewStore loads the catalog at path. The initial load must succeed.
func NewStore(path string, logger ectologger.Logger) (*Store, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, logger: logger, digest: fingerprint.Parts(string(data))}
	s.current.Store(c)
	return s, nil
}

// Current returns the active catalog
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// OnReload registers a callback invoked with every successfully reloaded catalog
func (s *Store) OnReload(fn func(*Catalog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the catalog file and activates it if it is valid. A file whose content
// is unchanged since the last successful load is ignored.
func (s *Store) Reload() error {
	data, err := readFile(s.path)
	if err != nil {
		return err
	}
	digest := fingerprint.Parts(string(data))

	s.mu.Lock()
	changed := fingerprint.HasChanged(s.digest, digest)
	s.mu.Unlock()
	if !changed {
		s.logger.WithField("path", s.path).Debug("Catalog content unchanged, skipping reload")
		return nil
	}

	c, err := Parse(data)
	if err != nil {
		return err
	}
	s.current.Store(c)

	s.mu.Lock()
	s.digest = digest
	callbacks := append([]func(*Catalog){}, s.onReload...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(c)
	}
	return nil
}

// Watch reloads the catalog whenever its file is written until ctx is cancelled.
// The containing directory is watched so that editors replacing the file are noticed.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}
	s.watcher = watcher

	go s.watch(ctx)

	s.logger.WithContext(ctx).WithField("path", s.path).Info("Catalog watcher started")
	return nil
}

func (s *Store) watch(ctx context.Context) {
	defer s.watcher.Close()

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			time.Sleep(reloadDelay)
			log := s.logger.WithContext(ctx).WithField("path", s.path)
			if err := s.Reload(); err != nil {
				log.WithError(err).Error("Catalog reload rejected, keeping previous catalog")
				continue
			}
			log.WithField("version", s.Current().Version).Info("Catalog reloaded")
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithContext(ctx).WithError(err).Warn("Catalog watcher error")
		}
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return data, nil
}
