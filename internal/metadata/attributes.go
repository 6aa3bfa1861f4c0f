package metadata

// TrackAttributes is the attribute set extracted from an audio container and
// carried through enrichment and catalog registration. The zero value of a
// field means the attribute is absent; absent fields are never transmitted.
// Merge steps produce a new value rather than mutating an existing one.
type TrackAttributes struct {
	UUID       string
	SongTitle  string
	ArtistMain string
	AlbumTitle string
	Composer   string
	BandName   string
	Label      string

	YearRecorded    int
	YearReleased    int
	SongOrder       int
	DurationSeconds int

	Instrument         string
	OtherArtistPlaying string
	Comments           string

	MusicBrainzTrackID  string
	MusicBrainzAlbumID  string
	MusicBrainzArtistID string

	// SongFile and AlbumCover hold artifact references once the audio file
	// and cover art have been stored.
	SongFile   string
	AlbumCover string

	// ArtistID and AlbumID are set after the catalog entities are resolved.
	ArtistID int64
	AlbumID  int64
}

// IsEmpty reports whether no attribute was extracted at all.
func (a TrackAttributes) IsEmpty() bool {
	return a == TrackAttributes{}
}
