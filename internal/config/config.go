package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Watcher     WatcherConfig     `yaml:"watcher"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	BaseURL     string `yaml:"base_url"`
	MaxBodySize int64  `yaml:"max_body_size"`
}

// StorageConfig holds artifact storage configuration. Object storage is
// enabled when Endpoint is non-empty; otherwise everything stays on local
// disk under UploadDir.
type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir"`
	Endpoint    string `yaml:"endpoint"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	UseSSL      bool   `yaml:"use_ssl"`
	AudioBucket string `yaml:"audio_bucket"`
	CoverBucket string `yaml:"cover_bucket"`
	CDNDomain   string `yaml:"cdn_domain"`
}

// MusicBrainzConfig identifies this application to the MusicBrainz API,
// which requires a name/version/contact triple in the User-Agent.
type MusicBrainzConfig struct {
	AppName    string        `yaml:"app_name"`
	AppVersion string        `yaml:"app_version"`
	Contact    string        `yaml:"contact"`
	RateLimit  time.Duration `yaml:"rate_limit"`
}

// CatalogConfig holds the Muza catalog GraphQL endpoint configuration.
type CatalogConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	HookCommand string        `yaml:"hook_command"`
}

// WatcherConfig configures the optional ingest drop directory.
type WatcherConfig struct {
	Dir         string        `yaml:"dir"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration defaults used when neither the config
// file nor the environment overrides a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5002,
			MaxBodySize: 100 << 20,
		},
		Storage: StorageConfig{
			UploadDir:   "downloads",
			AudioBucket: "muza-audio",
			CoverBucket: "muza-cover-art",
		},
		MusicBrainz: MusicBrainzConfig{
			AppName:    "MuzaUploader",
			AppVersion: "1.0",
			Contact:    "admin@example.com",
			RateLimit:  time.Second,
		},
		Catalog: CatalogConfig{
			Endpoint: "http://localhost:5000/graphql",
			Timeout:  30 * time.Second,
		},
		Watcher: WatcherConfig{
			SettleDelay: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.Server.Host, "MUZA_HOST")
	envInt(&c.Server.Port, "PORT")
	envString(&c.Server.BaseURL, "MUZA_BASE_URL")

	envString(&c.Storage.UploadDir, "UPLOAD_DIR")
	envString(&c.Storage.Endpoint, "OBJECT_STORE_ENDPOINT")
	envString(&c.Storage.AccessKey, "OBJECT_STORE_ACCESS_KEY")
	envString(&c.Storage.SecretKey, "OBJECT_STORE_SECRET_KEY")
	envBool(&c.Storage.UseSSL, "OBJECT_STORE_USE_SSL")
	envString(&c.Storage.AudioBucket, "OBJECT_STORE_AUDIO_BUCKET")
	envString(&c.Storage.CoverBucket, "OBJECT_STORE_COVER_BUCKET")
	envString(&c.Storage.CDNDomain, "CDN_DOMAIN")

	envString(&c.MusicBrainz.AppName, "MUSICBRAINZ_APP_NAME")
	envString(&c.MusicBrainz.AppVersion, "MUSICBRAINZ_APP_VERSION")
	envString(&c.MusicBrainz.Contact, "MUSICBRAINZ_CONTACT")
	envDuration(&c.MusicBrainz.RateLimit, "MUSICBRAINZ_RATE_LIMIT")

	envString(&c.Catalog.Endpoint, "MUZA_SERVER_URL")
	envDuration(&c.Catalog.Timeout, "MUZA_SERVER_TIMEOUT")
	envString(&c.Catalog.HookCommand, "MUZA_TRACK_HOOK")

	envString(&c.Watcher.Dir, "WATCH_DIR")
	envDuration(&c.Watcher.SettleDelay, "WATCH_SETTLE_DELAY")

	envString(&c.Logging.Level, "LOG_LEVEL")
}

// ObjectStoreEnabled reports whether object storage is configured.
func (c *StorageConfig) ObjectStoreEnabled() bool {
	return c.Endpoint != ""
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
