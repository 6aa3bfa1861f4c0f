package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/config"
)

const (
	// DefaultBaseURL is the MusicBrainz API base URL.
	DefaultBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultCoverArtBaseURL is the Cover Art Archive base URL.
	DefaultCoverArtBaseURL = "https://coverartarchive.org"
)

// Client talks to MusicBrainz and the Cover Art Archive. Lookup failures of
// any kind surface as a nil result, never as an error: missing enrichment is
// an expected condition the pipeline continues through.
type Client struct {
	httpClient      *http.Client
	userAgent       string
	baseURL         string
	coverArtBaseURL string
	log             hclog.Logger

	// MusicBrainz asks clients to keep roughly one request per second.
	// The delay is serialized per client instance; concurrent pipelines
	// each carry their own clock.
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

// NewClient creates a MusicBrainz client identified by the configured
// application name/version/contact triple, as the service's usage policy
// requires.
func NewClient(cfg config.MusicBrainzConfig, log hclog.Logger) *Client {
	interval := cfg.RateLimit
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		userAgent:       fmt.Sprintf("%s/%s (%s)", cfg.AppName, cfg.AppVersion, cfg.Contact),
		baseURL:         DefaultBaseURL,
		coverArtBaseURL: DefaultCoverArtBaseURL,
		log:             log.Named("musicbrainz"),
		interval:        interval,
	}
}

// SetBaseURLs overrides the remote endpoints. Used by tests.
func (c *Client) SetBaseURLs(api, coverArt string) {
	c.baseURL = api
	c.coverArtBaseURL = coverArt
}

// wait enforces the courtesy delay between consecutive external calls.
func (c *Client) wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed := time.Since(c.last); elapsed < c.interval {
		time.Sleep(c.interval - elapsed)
	}
	c.last = time.Now()
}

// LookupByID fetches a recording by its MusicBrainz id and returns the
// normalized result, or nil when the recording is unknown or the service is
// unreachable.
func (c *Client) LookupByID(ctx context.Context, trackID string) *Lookup {
	c.wait()

	lookupURL := fmt.Sprintf("%s/recording/%s?fmt=json&inc=artists+releases+labels", c.baseURL, url.PathEscape(trackID))
	var rec Recording
	if err := c.getJSON(ctx, lookupURL, &rec); err != nil {
		c.log.Error("recording lookup failed", "track_id", trackID, "error", err)
		return nil
	}
	return normalize(&rec)
}

// Search issues a structured recording search by title and artist, and album
// when given. Only the first result is taken; ranking is left to the remote
// service. Returns nil when nothing matches or the service is unreachable.
func (c *Client) Search(ctx context.Context, title, artist, album string) *Lookup {
	query := buildQuery(title, artist, album)
	if query == "" {
		return nil
	}
	c.wait()

	searchURL := fmt.Sprintf("%s/recording?query=%s&fmt=json&limit=1", c.baseURL, url.QueryEscape(query))
	var resp searchResponse
	if err := c.getJSON(ctx, searchURL, &resp); err != nil {
		c.log.Error("recording search failed", "query", query, "error", err)
		return nil
	}
	if len(resp.Recordings) == 0 {
		c.log.Debug("recording search returned no results", "query", query)
		return nil
	}
	return normalize(&resp.Recordings[0])
}

// CoverArtURL probes the Cover Art Archive front-cover URL for a release.
// A 200 means artwork exists; 404 means none; anything else, including
// transport errors, is treated as none. The archive mishandles HEAD for some
// releases, so the probe is a GET.
func (c *Client) CoverArtURL(ctx context.Context, albumID string) string {
	c.wait()

	coverURL := fmt.Sprintf("%s/release/%s/front", c.coverArtBaseURL, url.PathEscape(albumID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("cover art probe failed", "album_id", albumID, "error", err)
		return ""
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		c.log.Info("cover art found", "album_id", albumID)
		return coverURL
	case http.StatusNotFound:
		c.log.Debug("no cover art for release", "album_id", albumID)
		return ""
	default:
		c.log.Warn("unexpected cover art status", "album_id", albumID, "status", resp.StatusCode)
		return ""
	}
}

// DownloadImage fetches an image and returns its bytes together with the
// content type the server declared.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	c.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download error: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("MusicBrainz API error: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// buildQuery constructs a MusicBrainz Lucene search query.
func buildQuery(title, artist, album string) string {
	var parts []string
	if title != "" {
		parts = append(parts, fmt.Sprintf("recording:%q", title))
	}
	if artist != "" {
		parts = append(parts, fmt.Sprintf("artist:%q", artist))
	}
	if album != "" {
		parts = append(parts, fmt.Sprintf("release:%q", album))
	}
	return strings.Join(parts, " AND ")
}
