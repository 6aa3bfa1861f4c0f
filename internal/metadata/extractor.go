// Package metadata extracts tag metadata and embedded artwork from audio
// containers.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
)

// ErrNoMetadata is returned when a container cannot be read or carries no
// usable metadata block.
var ErrNoMetadata = errors.New("could not extract metadata from file")

// Years outside this range are treated as tagging mistakes and dropped.
const (
	minYear = 1900
	maxYear = 2100
)

// CoverSink receives the embedded front-cover picture of a container. It
// returns an artifact reference for the stored image.
type CoverSink interface {
	StoreCover(data []byte, contentType, stem string) (string, error)
}

// Extractor reads tag metadata from audio containers. Covers embedded in the
// container are written through the sink; a nil sink skips artwork.
type Extractor struct {
	covers CoverSink
	log    hclog.Logger
}

// NewExtractor creates a tag extractor.
func NewExtractor(covers CoverSink, log hclog.Logger) *Extractor {
	return &Extractor{covers: covers, log: log.Named("metadata")}
}

// Extract reads the tag block of the container at path. Empty tags are
// dropped rather than carried as empty strings. If the container embeds a
// front-cover picture it is stored through the cover sink and referenced in
// the returned attributes. An unreadable container yields ErrNoMetadata.
func (e *Extractor) Extract(path string) (TrackAttributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return TrackAttributes{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		e.log.Error("failed to read container metadata", "path", path, "error", err)
		return TrackAttributes{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	attrs := TrackAttributes{
		SongTitle:           strings.TrimSpace(md.Title()),
		ArtistMain:          strings.TrimSpace(md.Artist()),
		AlbumTitle:          strings.TrimSpace(md.Album()),
		Composer:            strings.TrimSpace(md.Composer()),
		BandName:            strings.TrimSpace(md.AlbumArtist()),
		Comments:            strings.TrimSpace(md.Comment()),
		Label:               e.rawTag(md, "LABEL"),
		Instrument:          e.rawTag(md, "INSTRUMENT"),
		OtherArtistPlaying:  e.rawTag(md, "PERFORMER"),
		MusicBrainzTrackID:  e.rawTag(md, "MUSICBRAINZ_TRACKID"),
		MusicBrainzAlbumID:  e.rawTag(md, "MUSICBRAINZ_ALBUMID"),
		MusicBrainzArtistID: e.rawTag(md, "MUSICBRAINZ_ARTISTID"),
	}
	attrs.YearRecorded = e.parseYear(e.rawTag(md, "DATE"))
	attrs.YearReleased = e.parseYear(e.rawTag(md, "ORIGINALDATE"))
	attrs.SongOrder = e.parseTrackNumber(e.rawTag(md, "TRACKNUMBER"))

	if dur, err := flacDuration(path); err == nil {
		attrs.DurationSeconds = dur
	} else {
		e.log.Warn("could not determine play duration", "path", path, "error", err)
	}

	if pic := md.Picture(); pic != nil && e.covers != nil {
		stem := artifacts.CoverStem(attrs.ArtistMain, attrs.AlbumTitle)
		ref, err := e.covers.StoreCover(pic.Data, pic.MIMEType, stem)
		if err != nil {
			e.log.Error("failed to store embedded cover", "path", path, "error", err)
		} else {
			attrs.AlbumCover = ref
		}
	}

	return attrs, nil
}

// rawTag reads a vorbis comment that dhowden/tag has no accessor for,
// returning the first value trimmed of surrounding whitespace.
func (e *Extractor) rawTag(md tag.Metadata, name string) string {
	raw := md.Raw()
	v, ok := raw[strings.ToLower(name)]
	if !ok {
		v, ok = raw[name]
	}
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []string:
		if len(s) > 0 {
			return strings.TrimSpace(s[0])
		}
	}
	return ""
}

// parseYear extracts the year from a date tag, which may be plain "1971" or
// a full "1971-10-11". Out-of-range or malformed values are dropped.
func (e *Extractor) parseYear(date string) int {
	if date == "" {
		return 0
	}
	year, err := strconv.Atoi(strings.SplitN(date, "-", 2)[0])
	if err != nil || year < minYear || year > maxYear {
		e.log.Warn("could not parse year from tag", "value", date)
		return 0
	}
	return year
}

// parseTrackNumber extracts the track position from values like "3" or
// "3/12". Malformed values are dropped.
func (e *Extractor) parseTrackNumber(track string) int {
	if track == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.SplitN(track, "/", 2)[0])
	if err != nil {
		e.log.Warn("could not parse track number from tag", "value", track)
		return 0
	}
	return n
}
