// Package pipeline coordinates one ingest: store the audio file, extract its
// tags, enrich them from MusicBrainz, resolve artwork, and register the
// artist, album and track against the catalog.
package pipeline

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
	"github.com/shanidan92/muza-metadata-server/internal/catalog"
	"github.com/shanidan92/muza-metadata-server/internal/enrich"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
)

// Pipeline runs ingests sequentially: each stage completes before the next
// begins, and concurrent ingests are independent instances sharing only
// configuration. Enrichment and artwork failures degrade the result; catalog
// track-write failures fail the ingest without compensating deletes of
// entities created earlier in the same run (those are independently valid).
type Pipeline struct {
	store     *artifacts.Store
	extractor *metadata.Extractor
	enricher  *enrich.Merger
	catalog   *catalog.Client
	log       hclog.Logger
}

// Result is the outcome of a successful ingest.
type Result struct {
	Track      *catalog.Track
	Attributes metadata.TrackAttributes
}

// New wires a pipeline from its components.
func New(store *artifacts.Store, extractor *metadata.Extractor, enricher *enrich.Merger, cat *catalog.Client, log hclog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		extractor: extractor,
		enricher:  enricher,
		catalog:   cat,
		log:       log.Named("pipeline"),
	}
}

// Ingest processes one uploaded audio file. originalName is only consulted
// for its extension; baseURL is the externally visible root used to mint
// file URLs. Validation failures (disallowed extension, unreadable
// container, missing title) surface before or instead of catalog writes.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, originalName, baseURL string) (*Result, error) {
	audioRef, err := p.store.StoreAudio(ctx, r, originalName)
	if err != nil {
		return nil, err
	}

	attrs, err := p.extractor.Extract(p.store.LocalPath(audioRef))
	if err != nil {
		return nil, err
	}
	attrs.SongFile = p.store.ResolveURL(audioRef, baseURL)

	attrs = p.enricher.Enrich(ctx, attrs)

	if attrs.ArtistMain != "" {
		if artist := p.catalog.FindOrCreateArtist(ctx, attrs); artist != nil {
			attrs.ArtistID = artist.ID
		}
	}

	if attrs.AlbumTitle != "" {
		if existing := p.catalog.FindExistingAlbum(ctx, attrs.AlbumTitle, attrs.ArtistID); existing != nil {
			p.log.Info("using existing album", "title", existing.Title, "id", existing.ID)
			attrs.AlbumID = existing.ID
			// The existing album already owns its cover; drop the
			// track-level one rather than conflate identities.
			attrs.AlbumCover = ""
		} else {
			coverURL := p.store.ResolveURL(attrs.AlbumCover, baseURL)
			if album := p.catalog.CreateAlbum(ctx, attrs, attrs.ArtistID, coverURL); album != nil {
				attrs.AlbumID = album.ID
			}
		}
	}

	// Album-owned facts live on the album entity once resolved; the track
	// record keeps link-only metadata.
	attrs.AlbumTitle = ""
	attrs.AlbumCover = ""
	attrs.BandName = ""
	attrs.Label = ""
	attrs.YearReleased = 0

	track, err := p.catalog.CreateTrack(ctx, attrs)
	if err != nil {
		return nil, err
	}

	return &Result{Track: track, Attributes: attrs}, nil
}
