package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor or copy produces.
const DefaultDebounce = 250 * time.Millisecond

// Source reads listings from a file on disk.
type Source struct {
	path     string
	debounce time.Duration

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

var (
	_ driven.ListingSource  = (*Source)(nil)
	_ driven.ListingWatcher = (*Source)(nil)
)

// New creates a file source for path.
func New(path string) *Source {
	return &Source{
		path:     path,
		debounce: DefaultDebounce,
		closeCh:  make(chan struct{}),
	}
}

// WithDebounce sets the quiet period before a change is reported.
func (s *Source) WithDebounce(d time.Duration) *Source {
	s.debounce = d
	return s
}

// Path returns the watched file path.
func (s *Source) Path() string {
	return s.path
}

// FetchListings opens the file. The caller closes it.
func (s *Source) FetchListings(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", s.path, domain.ErrTransport, err)
	}
	if s.isClosed() {
		return nil, fmt.Errorf("open %s: %w: %w", s.path, domain.ErrTransport, domain.ErrSourceClosed)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", s.path, domain.ErrTransport, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w: %w", s.path, domain.ErrTransport, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: %w: is a directory", s.path, domain.ErrTransport)
	}
	return f, nil
}

// Watch sends on the returned channel after the file is written, created,
// renamed or removed. The parent directory is watched so atomic replaces
// are seen. The channel closes when ctx is cancelled or the source is closed.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	if s.isClosed() {
		return nil, domain.ErrSourceClosed
	}

	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory error: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.handleFsEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			select {
			case changes <- struct{}{}:
			default:
				// A change is already pending.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file source: watcher error: %v", err)
		}
	}
}

// handleFsEvent reports whether event concerns the watched file content.
func (s *Source) handleFsEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return false
	}
	return event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}

// Close stops all watchers. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	return nil
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsNotExist reports whether err was caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
