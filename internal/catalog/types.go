// Package catalog performs idempotent find-or-create registration of artist,
// album and track entities against the Muza metadata server's GraphQL
// endpoint. Writes are append-only: existing entities are reused, never
// updated or deleted.
package catalog

// Artist is a catalog artist entity as returned by the remote server.
type Artist struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	BandName string `json:"bandName,omitempty"`
}

// Album is a catalog album entity.
type Album struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	Title    string `json:"title"`
	ArtistID int64  `json:"artistId,omitempty"`
}

// Track is a catalog track entity. The server enforces uniqueness on the
// track UUID and, when present, on the MusicBrainz track id.
type Track struct {
	ID         int64  `json:"id"`
	UUID       string `json:"uuid"`
	SongTitle  string `json:"songTitle"`
	ArtistMain string `json:"artistMain,omitempty"`
	ArtistID   int64  `json:"artistId,omitempty"`
	AlbumID    int64  `json:"albumId,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}
