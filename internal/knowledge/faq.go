package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/logger"

	"github.com/fsnotify/fsnotify"
)

const faqDebounce = 500 * time.Millisecond

// ErrEmptyFAQ fails the FAQ build so the index stays Failed and is retried.
var ErrEmptyFAQ = errors.New("faq file is empty")

// FAQFileLoader reads the FAQ corpus from path on every build.
func FAQFileLoader(path string) index.Loader {
	return func(_ context.Context) ([]index.Document, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read faq: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("%s: %w", path, ErrEmptyFAQ)
		}
		return []index.Document{{Text: text, Metadata: map[string]string{"source": filepath.Base(path)}}}, nil
	}
}

// Rebuilder is satisfied by *index.Index.
type Rebuilder interface {
	Rebuild(ctx context.Context, docs []index.Document) (int, error)
}

// FAQWatcher rebuilds the FAQ index when the file changes on disk.
type FAQWatcher struct {
	path   string
	load   index.Loader
	target Rebuilder
	log    *logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewFAQWatcher(path string, target Rebuilder, log *logger.Logger) *FAQWatcher {
	return &FAQWatcher{path: path, load: FAQFileLoader(path), target: target, log: log}
}

// Run watches the file's directory (editors replace files rather than write
// in place) until ctx is done.
func (w *FAQWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create faq watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("faq watcher error", "error", err)
		}
	}
}

// schedule collapses bursts of events into one rebuild.
func (w *FAQWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(faqDebounce, func() { w.reload(ctx) })
}

func (w *FAQWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *FAQWatcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	docs, err := w.load(ctx)
	if err != nil {
		w.log.Warn("faq reload skipped, keeping previous index", "error", err)
		return
	}
	chunks, err := w.target.Rebuild(ctx, docs)
	if err != nil {
		w.log.Error("faq rebuild failed", "error", err)
		return
	}
	w.log.Info("faq index rebuilt", slog.String("path", w.path), slog.Int("chunks", chunks))
}
