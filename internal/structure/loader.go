package structure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
)

// debounceDelay coalesces rapid filesystem events before invalidating.
const debounceDelay = 100 * time.Millisecond

// Loader reads structure artifacts by slug, with an optional cache that
// is invalidated by filesystem notifications.
//
// Without Watch, every Load reads from disk, so a structure that appears
// or locks between calls is always seen. With Watch running, parsed
// artifacts are cached until a write in the structures directory touches
// them; this is what the long-lived daemon uses.
type Loader struct {
	dir string
	log *logging.Logger

	mu      sync.Mutex
	cache   map[string]*Structure
	pending map[string]struct{}

	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewLoader creates a loader over the given structures directory.
func NewLoader(dir string, log *logging.Logger) *Loader {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Loader{
		dir:     dir,
		log:     log.WithComponent("structure"),
		cache:   make(map[string]*Structure),
		pending: make(map[string]struct{}),
	}
}

// Path returns the artifact path for a slug.
func (l *Loader) Path(slug string) string {
	return filepath.Join(l.dir, slug+FileExt)
}

// Load reads the artifact for slug.
//
// A missing artifact yields an error wrapping ErrStructureNotReady; a file
// that exists but does not parse is reported as malformed. Lock state is
// not checked here. Callers that gate on it (the expander) do so
// themselves.
func (l *Loader) Load(slug string) (*Structure, error) {
	if l.caching() {
		l.mu.Lock()
		if s, ok := l.cache[slug]; ok {
			l.mu.Unlock()
			return s, nil
		}
		l.mu.Unlock()
	}

	data, err := os.ReadFile(l.Path(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStructureError("no structure artifact", errors.ErrStructureNotReady).WithSlug(slug)
		}
		return nil, errors.NewStructureError("cannot read structure artifact", err).WithSlug(slug)
	}

	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewStructureError("malformed structure artifact", err).WithSlug(slug)
	}
	if s.Slug == "" {
		s.Slug = slug
	}

	if l.caching() {
		l.mu.Lock()
		l.cache[slug] = &s
		l.mu.Unlock()
	}
	return &s, nil
}

// Exists reports whether an artifact is present for slug. Never errors;
// unreadable paths report false.
func (l *Loader) Exists(slug string) bool {
	info, err := os.Stat(l.Path(slug))
	return err == nil && !info.IsDir()
}

// Invalidate drops the cached entry for slug.
func (l *Loader) Invalidate(slug string) {
	l.mu.Lock()
	delete(l.cache, slug)
	l.mu.Unlock()
}

// Watch enables caching and starts invalidating entries when files in the
// structures directory change. The directory is created if absent.
func (l *Loader) Watch() error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create structures directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory; fsnotify works better with directories than
	// with individual files that may not exist yet.
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch structures directory: %w", err)
	}

	l.mu.Lock()
	l.watcher = watcher
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	go l.watchLoop(watcher, l.stopCh)
	return nil
}

// Close stops the watcher, if running. Safe to call more than once.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		watcher := l.watcher
		stopCh := l.stopCh
		l.watcher = nil
		l.mu.Unlock()

		if stopCh != nil {
			close(stopCh)
		}
		if watcher != nil {
			watcher.Close()
		}
	})
}

func (l *Loader) caching() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watcher != nil
}

// watchLoop invalidates cache entries for changed artifacts. Events are
// debounced so an editor writing the file in bursts invalidates once.
func (l *Loader) watchLoop(watcher *fsnotify.Watcher, stopCh chan struct{}) {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			slug, ok := slugFromPath(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			l.mu.Lock()
			l.pending[slug] = struct{}{}
			l.mu.Unlock()
			debounceTimer.Reset(debounceDelay)

		case <-debounceTimer.C:
			l.mu.Lock()
			for slug := range l.pending {
				delete(l.cache, slug)
			}
			n := len(l.pending)
			l.pending = make(map[string]struct{})
			l.mu.Unlock()
			if n > 0 {
				l.log.Debug("invalidated structure cache entries", "count", n)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn("structure watcher error", "error", err)
		}
	}
}

// slugFromPath extracts the slug from an artifact path, rejecting
// non-artifact files like editor temp files.
func slugFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, FileExt) {
		return "", false
	}
	slug := strings.TrimSuffix(base, FileExt)
	if slug == "" {
		return "", false
	}
	return slug, true
}
