// Package watcher ingests audio files dropped into a watched directory,
// covering bulk imports that never pass through the upload endpoint.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/config"
	"github.com/shanidan92/muza-metadata-server/internal/pipeline"
)

// Watcher monitors a drop directory and runs each new .flac file through the
// ingest pipeline. Files are picked up once their writes have settled; each
// file is handled off the event loop so a slow copy never delays the pickup
// of later drops.
type Watcher struct {
	cfg      config.WatcherConfig
	baseURL  string
	pipeline *pipeline.Pipeline
	log      hclog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a drop-directory watcher.
func New(cfg config.WatcherConfig, baseURL string, p *pipeline.Pipeline, log hclog.Logger) *Watcher {
	return &Watcher{
		cfg:      cfg,
		baseURL:  baseURL,
		pipeline: p,
		log:      log.Named("watcher"),
		inFlight: make(map[string]bool),
	}
}

// begin marks a path as being processed. Reports false when the path is
// already in flight, so repeated events for one file ingest it once.
func (w *Watcher) begin(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[path] {
		return false
	}
	w.inFlight[path] = true
	return true
}

func (w *Watcher) end(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, path)
}

// Run watches the drop directory until the context is cancelled. Ingest
// failures are logged per file and never stop the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching ingest directory", "dir", w.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".flac") {
				continue
			}
			if !w.begin(event.Name) {
				continue
			}
			go func(path string) {
				defer w.end(path)
				w.ingestWhenSettled(ctx, path)
			}(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// ingestWhenSettled waits for the file size to stop changing, then ingests.
// Copies into the drop directory arrive incrementally; picking the file up
// mid-write would extract from a truncated container.
func (w *Watcher) ingestWhenSettled(ctx context.Context, path string) {
	delay := w.cfg.SettleDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		info, err := os.Stat(path)
		if err != nil {
			w.log.Warn("dropped file vanished before ingest", "path", path)
			return
		}
		if info.Size() == lastSize {
			break
		}
		lastSize = info.Size()
	}

	f, err := os.Open(path)
	if err != nil {
		w.log.Error("could not open dropped file", "path", path, "error", err)
		return
	}
	defer f.Close()

	result, err := w.pipeline.Ingest(ctx, f, filepath.Base(path), w.baseURL)
	if err != nil {
		w.log.Error("ingest of dropped file failed", "path", path, "error", err)
		return
	}
	w.log.Info("ingested dropped file", "path", path, "track_uuid", result.Track.UUID)

	if err := os.Remove(path); err != nil {
		w.log.Warn("could not remove ingested drop file", "path", path, "error", err)
	}
}
