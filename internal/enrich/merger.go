// Package enrich combines container-extracted attributes with MusicBrainz
// lookup results under a fixed local-wins precedence policy.
package enrich

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
	"github.com/shanidan92/muza-metadata-server/internal/musicbrainz"
)

// CoverStore persists downloaded cover art and reports an artifact reference.
type CoverStore interface {
	StoreDownloadedCover(data []byte, contentType, stem string) (string, error)
}

// Merger enriches local attributes from MusicBrainz and resolves missing
// cover art. Enrichment is strictly best-effort: every failure degrades to
// the local-only attributes.
type Merger struct {
	lookup *musicbrainz.Client
	covers CoverStore
	log    hclog.Logger
}

// NewMerger creates an enrichment merger.
func NewMerger(lookup *musicbrainz.Client, covers CoverStore, log hclog.Logger) *Merger {
	return &Merger{lookup: lookup, covers: covers, log: log.Named("enrich")}
}

// Merge combines local attributes with a normalized lookup result. A remote
// field is adopted only where the local field is absent; values embedded in
// the container always win, protecting curator intent. The input is not
// mutated.
func Merge(local metadata.TrackAttributes, remote *musicbrainz.Lookup) metadata.TrackAttributes {
	merged := local
	if remote == nil {
		return merged
	}

	adopt(&merged.SongTitle, remote.Title)
	adopt(&merged.ArtistMain, remote.Artist)
	adopt(&merged.AlbumTitle, remote.AlbumTitle)
	adopt(&merged.Label, remote.Label)
	adopt(&merged.MusicBrainzTrackID, remote.TrackID)
	adopt(&merged.MusicBrainzAlbumID, remote.AlbumID)
	adopt(&merged.MusicBrainzArtistID, remote.ArtistID)
	if merged.YearReleased == 0 {
		merged.YearReleased = remote.YearReleased
	}
	return merged
}

// Enrich looks the track up by its MusicBrainz id when the container carried
// one, falling back to a title/artist search, then merges the result and
// resolves cover art. The returned attributes are always usable; absent
// enrichment leaves the local values untouched.
func (m *Merger) Enrich(ctx context.Context, local metadata.TrackAttributes) metadata.TrackAttributes {
	var remote *musicbrainz.Lookup
	if local.MusicBrainzTrackID != "" {
		remote = m.lookup.LookupByID(ctx, local.MusicBrainzTrackID)
	}
	if remote == nil && local.SongTitle != "" && local.ArtistMain != "" {
		remote = m.lookup.Search(ctx, local.SongTitle, local.ArtistMain, local.AlbumTitle)
	}
	m.log.Debug("musicbrainz enrichment", "title", local.SongTitle, "found", remote != nil)

	merged := Merge(local, remote)
	m.resolveCover(ctx, &merged)
	return merged
}

// resolveCover attaches cover art when the container embedded none. The
// container's own artwork, when present, is never replaced.
func (m *Merger) resolveCover(ctx context.Context, attrs *metadata.TrackAttributes) {
	if attrs.AlbumCover != "" || attrs.MusicBrainzAlbumID == "" {
		return
	}

	coverURL := m.lookup.CoverArtURL(ctx, attrs.MusicBrainzAlbumID)
	if coverURL == "" {
		return
	}

	data, contentType, err := m.lookup.DownloadImage(ctx, coverURL)
	if err != nil {
		m.log.Error("cover art download failed", "url", coverURL, "error", err)
		return
	}

	ref, err := m.covers.StoreDownloadedCover(data, contentType, artifacts.CoverStem(attrs.ArtistMain, attrs.AlbumTitle))
	if err != nil {
		if errors.Is(err, artifacts.ErrCoverTooSmall) {
			m.log.Warn("rejected placeholder cover download", "album_id", attrs.MusicBrainzAlbumID)
		} else {
			m.log.Error("failed to store downloaded cover", "error", err)
		}
		return
	}
	attrs.AlbumCover = ref
}

func adopt(dst *string, remote string) {
	if *dst == "" && remote != "" {
		*dst = remote
	}
}
