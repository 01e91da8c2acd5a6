package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alexanderramin/remediate/internal/source"
)

const (
	debounceDefault = 250 * time.Millisecond
	workersDefault  = 2
	pollDefault     = 5 * time.Second

	// maxQueueSize bounds the work queue so a burst of drops cannot grow
	// memory without limit; the debounce flush blocks when it is full.
	maxQueueSize = 200
)

// Handler processes one inbox file.
type Handler func(ctx context.Context, path string)

// Watcher watches the inbox with fsnotify and feeds a fixed worker pool.
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	workers  int
	logger   *slog.Logger
}

func NewWatcher(dir string, handler Handler, debounce time.Duration, workers int, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = debounceDefault
	}
	if workers <= 0 {
		workers = workersDefault
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{dir: dir, handler: handler, debounce: debounce, workers: workers, logger: logger}
}

// Run blocks until ctx is cancelled. Files queued before cancellation are
// still handled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// A single timer is reset on every event; when it fires every path
	// collected so far moves to the queue.
	var mu sync.Mutex
	ready := make(map[string]bool)
	queue := make(chan string, maxQueueSize)

	// Handlers outlive ctx so an in-flight file is not cut off half way.
	workCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				w.handle(workCtx, path)
			}
		}()
	}

	flush := func() {
		mu.Lock()
		batch := make([]string, 0, len(ready))
		for p := range ready {
			batch = append(batch, p)
		}
		ready = make(map[string]bool)
		mu.Unlock()

		for _, p := range batch {
			select {
			case queue <- p:
			case <-ctx.Done():
				return
			}
		}
	}

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()

	defer func() {
		debounceTimer.Stop()
		close(queue)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isInboxFile(event.Name) {
				continue
			}

			mu.Lock()
			ready[event.Name] = true
			mu.Unlock()

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

// handle runs the handler, turning a panic into a logged error so one bad
// file cannot stop a worker.
func (w *Watcher) handle(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("inbox handler panicked", "file", filepath.Base(path), "panic", r)
		}
	}()
	// A rename out of the inbox also raises an event; skip vanished files.
	if _, err := os.Stat(path); err != nil {
		return
	}
	w.handler(ctx, path)
}

// PollWatcher scans the inbox on a ticker, for filesystems that do not
// deliver change notifications.
type PollWatcher struct {
	dir      string
	handler  Handler
	interval time.Duration
	seen     map[string]bool
}

func NewPollWatcher(dir string, handler Handler, interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = pollDefault
	}
	return &PollWatcher{dir: dir, handler: handler, interval: interval, seen: make(map[string]bool)}
}

func (w *PollWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *PollWatcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		present[path] = true
		if !isInboxFile(path) || w.seen[path] {
			continue
		}
		w.seen[path] = true
		w.handler(ctx, path)
		// A file the handler moved away may be dropped again under the
		// same name.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			delete(w.seen, path)
		}
	}
	for path := range w.seen {
		if !present[path] {
			delete(w.seen, path)
		}
	}
}

// ScanExisting handles documents already present in the inbox, such as
// files dropped while no watcher was running.
func ScanExisting(ctx context.Context, dir string, handler Handler) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if isInboxFile(path) {
			handler(ctx, path)
		}
	}
	return nil
}

// isInboxFile accepts supported documents and skips hidden files and
// partial writes.
func isInboxFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return source.Supported(name)
}
