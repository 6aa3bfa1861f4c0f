package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/config"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
)

// ErrNoTitle is returned when a track is submitted without the one required
// attribute.
var ErrNoTitle = errors.New("track has no title")

// Client talks to the Muza catalog GraphQL endpoint. Find-or-create lookups
// are best effort: a listing failure falls back to an unconditional create,
// accepting a small duplicate risk under concurrent creation; the durable
// uniqueness guarantee (track UUID, MusicBrainz track id) lives in the
// remote store.
type Client struct {
	endpoint    string
	hookCommand string
	httpClient  *http.Client
	log         hclog.Logger
}

// NewClient creates a catalog client for the configured endpoint.
func NewClient(cfg config.CatalogConfig, log hclog.Logger) *Client {
	return &Client{
		endpoint:    cfg.Endpoint,
		hookCommand: cfg.HookCommand,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		log:         log.Named("catalog"),
	}
}

// graphqlResponse is the GraphQL-over-HTTP response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute posts a query/mutation document and returns the data payload.
// A GraphQL errors array is surfaced as an error; the remote rejects
// duplicate-identifier creates this way rather than overwriting.
func (c *Client) execute(ctx context.Context, document string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"query": document})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog server error: %d", resp.StatusCode)
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("catalog errors: %s", strings.Join(msgs, "; "))
	}
	return envelope.Data, nil
}

// ListArtists returns all known catalog artists.
func (c *Client) ListArtists(ctx context.Context) ([]Artist, error) {
	data, err := c.execute(ctx, `{ artists { id uuid name bandName } }`)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Artists []Artist `json:"artists"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse artist list: %w", err)
	}
	return payload.Artists, nil
}

// FindOrCreateArtist reuses the catalog artist whose name matches
// case-insensitively, creating one when no match exists. A listing failure
// falls back to create. Returns nil, without an error, when the attributes
// carry no artist name or the remote write fails; the caller proceeds with
// an unlinked track.
func (c *Client) FindOrCreateArtist(ctx context.Context, attrs metadata.TrackAttributes) *Artist {
	name := strings.TrimSpace(attrs.ArtistMain)
	if name == "" {
		return nil
	}

	artists, err := c.ListArtists(ctx)
	if err != nil {
		c.log.Error("artist listing failed, falling back to create", "error", err)
		return c.CreateArtist(ctx, attrs)
	}
	for i := range artists {
		if strings.EqualFold(artists[i].Name, name) {
			c.log.Info("found existing artist", "name", artists[i].Name, "id", artists[i].ID)
			return &artists[i]
		}
	}
	return c.CreateArtist(ctx, attrs)
}

// CreateArtist registers a new artist. Returns nil on remote failure.
func (c *Client) CreateArtist(ctx context.Context, attrs metadata.TrackAttributes) *Artist {
	var args argList
	args.str("name", attrs.ArtistMain)
	args.str("bandName", attrs.BandName)
	args.str("musicbrainzArtistId", attrs.MusicBrainzArtistID)

	document := fmt.Sprintf(`mutation { createArtist(%s) { ok artist { id uuid name bandName } } }`, args.String())
	data, err := c.execute(ctx, document)
	if err != nil {
		c.log.Error("artist creation failed", "name", attrs.ArtistMain, "error", err)
		return nil
	}

	var payload struct {
		CreateArtist struct {
			OK     bool    `json:"ok"`
			Artist *Artist `json:"artist"`
		} `json:"createArtist"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || !payload.CreateArtist.OK || payload.CreateArtist.Artist == nil {
		c.log.Error("artist creation rejected", "name", attrs.ArtistMain)
		return nil
	}
	c.log.Info("created artist", "name", attrs.ArtistMain, "id", payload.CreateArtist.Artist.ID)
	return payload.CreateArtist.Artist
}

// ListAlbums returns all known catalog albums.
func (c *Client) ListAlbums(ctx context.Context) ([]Album, error) {
	data, err := c.execute(ctx, `{ albums { id uuid title artistId } }`)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Albums []Album `json:"albums"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse album list: %w", err)
	}
	return payload.Albums, nil
}

// FindExistingAlbum looks for an album matching the title case-insensitively
// under exactly the given artist. An identically titled album under a
// different artist is a distinct entity. Returns nil when absent or when the
// listing fails.
func (c *Client) FindExistingAlbum(ctx context.Context, title string, artistID int64) *Album {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	albums, err := c.ListAlbums(ctx)
	if err != nil {
		c.log.Error("album listing failed", "error", err)
		return nil
	}
	for i := range albums {
		if strings.EqualFold(albums[i].Title, title) && albums[i].ArtistID == artistID {
			return &albums[i]
		}
	}
	return nil
}

// FindOrCreateAlbum reuses a matching album or creates one linked to the
// given artist. coverURL carries the resolved album cover location, if any.
func (c *Client) FindOrCreateAlbum(ctx context.Context, attrs metadata.TrackAttributes, artistID int64, coverURL string) *Album {
	if strings.TrimSpace(attrs.AlbumTitle) == "" {
		return nil
	}
	if album := c.FindExistingAlbum(ctx, attrs.AlbumTitle, artistID); album != nil {
		c.log.Info("found existing album", "title", album.Title, "id", album.ID)
		return album
	}
	return c.CreateAlbum(ctx, attrs, artistID, coverURL)
}

// CreateAlbum registers a new album. Returns nil on remote failure.
func (c *Client) CreateAlbum(ctx context.Context, attrs metadata.TrackAttributes, artistID int64, coverURL string) *Album {
	var args argList
	args.str("title", attrs.AlbumTitle)
	args.str("cover", coverURL)
	args.num("yearRecorded", int64(attrs.YearRecorded))
	args.num("yearReleased", int64(attrs.YearReleased))
	args.str("label", attrs.Label)
	args.str("musicbrainzAlbumId", attrs.MusicBrainzAlbumID)
	args.num("artistId", artistID)

	document := fmt.Sprintf(`mutation { createAlbum(%s) { ok album { id uuid title artistId } } }`, args.String())
	data, err := c.execute(ctx, document)
	if err != nil {
		c.log.Error("album creation failed", "title", attrs.AlbumTitle, "error", err)
		return nil
	}

	var payload struct {
		CreateAlbum struct {
			OK    bool   `json:"ok"`
			Album *Album `json:"album"`
		} `json:"createAlbum"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || !payload.CreateAlbum.OK || payload.CreateAlbum.Album == nil {
		c.log.Error("album creation rejected", "title", attrs.AlbumTitle)
		return nil
	}
	c.log.Info("created album", "title", attrs.AlbumTitle, "id", payload.CreateAlbum.Album.ID)
	return payload.CreateAlbum.Album
}

// CreateTrack inserts a track. Tracks are append-only; there is no
// find-before-create. A UUID is generated when the attributes carry none; a
// missing title is a validation failure. On success the configured post-write
// hook runs once with the created record; hook failures are logged and do not
// affect the result.
func (c *Client) CreateTrack(ctx context.Context, attrs metadata.TrackAttributes) (*Track, error) {
	if strings.TrimSpace(attrs.SongTitle) == "" {
		return nil, ErrNoTitle
	}
	if attrs.UUID == "" {
		attrs.UUID = uuid.New().String()
	}

	var args argList
	args.str("uuid", attrs.UUID)
	args.str("songTitle", attrs.SongTitle)
	args.str("artistMain", attrs.ArtistMain)
	args.str("composer", attrs.Composer)
	args.str("instrument", attrs.Instrument)
	args.str("otherArtistPlaying", attrs.OtherArtistPlaying)
	args.str("songFile", attrs.SongFile)
	args.str("comments", attrs.Comments)
	args.str("musicbrainzTrackId", attrs.MusicBrainzTrackID)
	args.num("yearRecorded", int64(attrs.YearRecorded))
	args.num("songOrder", int64(attrs.SongOrder))
	args.num("durationSeconds", int64(attrs.DurationSeconds))
	args.num("artistId", attrs.ArtistID)
	args.num("albumId", attrs.AlbumID)

	document := fmt.Sprintf(`mutation { createMusicTrack(%s) { ok track { id uuid songTitle artistMain artistId albumId createdAt } } }`, args.String())
	data, err := c.execute(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("track creation failed: %w", err)
	}

	var payload struct {
		CreateMusicTrack struct {
			OK    bool   `json:"ok"`
			Track *Track `json:"track"`
		} `json:"createMusicTrack"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse track response: %w", err)
	}
	if !payload.CreateMusicTrack.OK || payload.CreateMusicTrack.Track == nil {
		return nil, fmt.Errorf("track creation rejected by catalog")
	}

	track := payload.CreateMusicTrack.Track
	c.log.Info("created track", "title", track.SongTitle, "uuid", track.UUID)
	c.runHook(track)
	return track, nil
}
