package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/verdict/pkg/policy"
)

// DefaultDebounce is the quiet period before a file change triggers a reload.
const DefaultDebounce = 200 * time.Millisecond

// FileSource loads rules from a YAML or JSON file on disk.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithDebounce sets the quiet period used by Watch.
func WithDebounce(d time.Duration) FileOption {
	return func(s *FileSource) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithFileLogger sets the logger used by Watch.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(s *FileSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSource returns a source reading the policy file at path.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{
		path:     path,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "policy.file_source", "path", path)
	return s
}

// Load parses the file and builds an engine.
func (s *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules, err := policy.LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	engine := policy.NewEngine(rules)
	return &Snapshot{
		Engine:   engine,
		Revision: engine.Version(),
		Origin:   s.path,
		LoadedAt: time.Now(),
	}, nil
}

// Watch watches the file's directory so that editors replacing the file by
// rename are still observed. Bursts of events are collapsed into one call.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	deb := newDebouncer(s.debounce)
	defer deb.stop()

	s.logger.Info("Policy file watcher started", "debounce_ms", s.debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Policy file watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			s.logger.Debug("Policy file event", "op", event.Op.String())
			deb.trigger(onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error("Policy file watcher error", "error", err)
		}
	}
}

// debouncer runs the most recent callback once no trigger has arrived for
// the interval.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
