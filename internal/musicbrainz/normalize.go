package musicbrainz

import (
	"strconv"
	"strings"
)

// Lookup is a normalized MusicBrainz result. Fields that normalize to empty
// are left at their zero value and treated as absent by the merge step.
type Lookup struct {
	TrackID      string
	Title        string
	Artist       string
	ArtistID     string
	AlbumTitle   string
	AlbumID      string
	Label        string
	YearReleased int
}

// normalize maps a recording onto the field set the pipeline consumes:
// first credited artist, first release, first listed label, 4-digit year
// prefix of the release date.
func normalize(rec *Recording) *Lookup {
	if rec == nil || rec.ID == "" {
		return nil
	}

	l := &Lookup{
		TrackID: rec.ID,
		Title:   strings.TrimSpace(rec.Title),
	}

	if len(rec.Artists) > 0 {
		l.Artist = strings.TrimSpace(rec.Artists[0].Name)
		l.ArtistID = rec.Artists[0].Artist.ID
	}

	if len(rec.Releases) > 0 {
		rel := rec.Releases[0]
		l.AlbumTitle = strings.TrimSpace(rel.Title)
		l.AlbumID = rel.ID
		l.YearReleased = yearFromDate(rel.Date)
		if len(rel.LabelInfo) > 0 {
			l.Label = strings.TrimSpace(rel.LabelInfo[0].Label.Name)
		}
	}

	return l
}

// yearFromDate extracts the leading 4-digit year from a MusicBrainz date
// string such as "1971-10-11" or "1971".
func yearFromDate(date string) int {
	if date == "" {
		return 0
	}
	year, err := strconv.Atoi(strings.SplitN(date, "-", 2)[0])
	if err != nil {
		return 0
	}
	return year
}
