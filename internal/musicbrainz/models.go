// Package musicbrainz queries the MusicBrainz web service and the Cover Art
// Archive, normalizing results for the enrichment step.
package musicbrainz

// searchResponse is a MusicBrainz recording search response.
type searchResponse struct {
	Recordings []Recording `json:"recordings"`
	Count      int         `json:"count"`
	Offset     int         `json:"offset"`
}

// Recording is a MusicBrainz recording.
type Recording struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Length   int            `json:"length,omitempty"`
	Releases []Release      `json:"releases,omitempty"`
	Artists  []ArtistCredit `json:"artist-credit,omitempty"`
	Score    int            `json:"score,omitempty"`
}

// Release is a MusicBrainz release.
type Release struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Date      string      `json:"date,omitempty"`
	Country   string      `json:"country,omitempty"`
	Status    string      `json:"status,omitempty"`
	LabelInfo []LabelInfo `json:"label-info,omitempty"`
}

// LabelInfo links a release to its label.
type LabelInfo struct {
	CatalogNumber string `json:"catalog-number,omitempty"`
	Label         Label  `json:"label"`
}

// Label is a MusicBrainz label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistCredit is a MusicBrainz artist credit.
type ArtistCredit struct {
	Name   string `json:"name"`
	Artist Artist `json:"artist"`
}

// Artist is a MusicBrainz artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
