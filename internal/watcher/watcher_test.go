package watcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
	"github.com/shanidan92/muza-metadata-server/internal/catalog"
	"github.com/shanidan92/muza-metadata-server/internal/config"
	"github.com/shanidan92/muza-metadata-server/internal/enrich"
	"github.com/shanidan92/muza-metadata-server/internal/flactest"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
	"github.com/shanidan92/muza-metadata-server/internal/musicbrainz"
	"github.com/shanidan92/muza-metadata-server/internal/pipeline"
)

// acceptAllCatalog answers every list with an empty set and every mutation
// with a fresh entity, counting the requests it sees.
func acceptAllCatalog(requests *int64) http.Handler {
	var nextID int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := func(data any) {
			json.NewEncoder(w).Encode(map[string]any{"data": data})
		}
		doc := req.Query
		switch {
		case strings.Contains(doc, "createArtist"):
			nextID++
			reply(map[string]any{"createArtist": map[string]any{"ok": true, "artist": catalog.Artist{ID: nextID}}})
		case strings.Contains(doc, "createAlbum"):
			nextID++
			reply(map[string]any{"createAlbum": map[string]any{"ok": true, "album": catalog.Album{ID: nextID}}})
		case strings.Contains(doc, "createMusicTrack"):
			nextID++
			reply(map[string]any{"createMusicTrack": map[string]any{"ok": true, "track": catalog.Track{ID: nextID, UUID: "track-uuid"}}})
		case strings.Contains(doc, "artists"):
			reply(map[string]any{"artists": []catalog.Artist{}})
		default:
			reply(map[string]any{"albums": []catalog.Album{}})
		}
	})
}

func newTestWatcher(t *testing.T, dir string, catalogRequests *int64) *Watcher {
	t.Helper()
	log := hclog.NewNullLogger()

	catSrv := httptest.NewServer(acceptAllCatalog(catalogRequests))
	t.Cleanup(catSrv.Close)

	store, err := artifacts.NewStore(config.StorageConfig{UploadDir: t.TempDir()}, nil, log)
	require.NoError(t, err)

	mb := musicbrainz.NewClient(config.MusicBrainzConfig{
		AppName:    "MuzaTest",
		AppVersion: "1.0",
		Contact:    "test@example.com",
		RateLimit:  time.Millisecond,
	}, log)
	mb.SetBaseURLs("http://127.0.0.1:1", "http://127.0.0.1:1")

	cat := catalog.NewClient(config.CatalogConfig{Endpoint: catSrv.URL, Timeout: 5 * time.Second}, log)
	p := pipeline.New(store, metadata.NewExtractor(store, log), enrich.NewMerger(mb, store, log), cat, log)

	return New(config.WatcherConfig{
		Dir:         dir,
		SettleDelay: 10 * time.Millisecond,
	}, "http://upload.local", p, log)
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestRunIngestsAndRemovesDroppedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropbox")
	var requests int64
	w := newTestWatcher(t, dir, &requests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Run creates the watch directory itself.
	require.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}))
	time.Sleep(50 * time.Millisecond) // let the fsnotify watch attach

	path := flactest.File{
		SampleRate:   44100,
		TotalSamples: 44100,
		Comments:     [][2]string{{"TITLE", "Imagine"}, {"ARTIST", "John Lennon"}},
	}.Write(t, dir, "imagine.flac")

	assert.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}), "ingested drop file must be removed")
	assert.NotZero(t, atomic.LoadInt64(&requests))
}

func TestRunLeavesFailedIngestInPlace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropbox")
	var requests int64
	w := newTestWatcher(t, dir, &requests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "broken.flac")
	require.NoError(t, os.WriteFile(path, []byte("not a flac stream"), 0o644))

	// Give the watcher time to pick the file up and fail the extract.
	time.Sleep(300 * time.Millisecond)
	_, err := os.Stat(path)
	assert.NoError(t, err, "failed ingests must not delete the dropped file")
}

func TestRunIgnoresOtherExtensions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropbox")
	var requests int64
	w := newTestWatcher(t, dir, &requests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("nothing musical"), 0o644))

	time.Sleep(300 * time.Millisecond)
	_, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Zero(t, atomic.LoadInt64(&requests))
}

func TestRunDoesNotBlockOnUnsettledFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropbox")
	var requests int64
	w := newTestWatcher(t, dir, &requests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}))
	time.Sleep(50 * time.Millisecond)

	// Simulate a slow copy: the file keeps growing, so its size never
	// settles for the lifetime of the test.
	growing := filepath.Join(dir, "copying.flac")
	require.NoError(t, os.WriteFile(growing, []byte("partial"), 0o644))
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
			}
			f, err := os.OpenFile(growing, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return
			}
			f.Write([]byte("x"))
			f.Close()
		}
	}()

	// A complete file dropped afterwards must still be picked up.
	path := flactest.File{
		SampleRate:   44100,
		TotalSamples: 44100,
		Comments:     [][2]string{{"TITLE", "Imagine"}, {"ARTIST", "John Lennon"}},
	}.Write(t, dir, "imagine.flac")

	assert.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}), "a file still being copied must not delay other drops")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropbox")
	var requests int64
	w := newTestWatcher(t, dir, &requests)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.True(t, waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
