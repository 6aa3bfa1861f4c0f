package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5002, cfg.Server.Port)
	assert.Equal(t, "downloads", cfg.Storage.UploadDir)
	assert.False(t, cfg.Storage.ObjectStoreEnabled())
	assert.Equal(t, time.Second, cfg.MusicBrainz.RateLimit)
	assert.Equal(t, "http://localhost:5000/graphql", cfg.Catalog.Endpoint)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
storage:
  upload_dir: /var/muza
  endpoint: minio.local:9000
musicbrainz:
  rate_limit: 1500ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/var/muza", cfg.Storage.UploadDir)
	assert.True(t, cfg.Storage.ObjectStoreEnabled())
	assert.Equal(t, 1500*time.Millisecond, cfg.MusicBrainz.RateLimit)

	// Values the file does not mention keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "muza-audio", cfg.Storage.AudioBucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("UPLOAD_DIR", "/srv/uploads")
	t.Setenv("MUZA_SERVER_URL", "http://catalog:5000/graphql")
	t.Setenv("MUZA_TRACK_HOOK", "/usr/local/bin/notify")
	t.Setenv("CDN_DOMAIN", "cdn.example.com")
	t.Setenv("MUSICBRAINZ_RATE_LIMIT", "2s")
	t.Setenv("WATCH_DIR", "/srv/dropbox")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "http://catalog:5000/graphql", cfg.Catalog.Endpoint)
	assert.Equal(t, "/usr/local/bin/notify", cfg.Catalog.HookCommand)
	assert.Equal(t, "cdn.example.com", cfg.Storage.CDNDomain)
	assert.Equal(t, 2*time.Second, cfg.MusicBrainz.RateLimit)
	assert.Equal(t, "/srv/dropbox", cfg.Watcher.Dir)
}

func TestEnvIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("MUSICBRAINZ_RATE_LIMIT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5002, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.MusicBrainz.RateLimit)
}
