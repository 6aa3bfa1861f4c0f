package metadata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanidan92/muza-metadata-server/internal/flactest"
)

// coverRecorder captures covers stored during extraction.
type coverRecorder struct {
	data        []byte
	contentType string
	stem        string
	calls       int
}

func (r *coverRecorder) StoreCover(data []byte, contentType, stem string) (string, error) {
	r.data = data
	r.contentType = contentType
	r.stem = stem
	r.calls++
	return "images/cover_" + stem + "_test.jpg", nil
}

func newTestExtractor(covers CoverSink) *Extractor {
	return NewExtractor(covers, hclog.NewNullLogger())
}

func TestExtractReadsTags(t *testing.T) {
	dir := t.TempDir()
	path := flactest.File{
		SampleRate:   44100,
		TotalSamples: 44100 * 222,
		Comments: [][2]string{
			{"TITLE", "Imagine"},
			{"ARTIST", " John Lennon "},
			{"ALBUM", "Imagine"},
			{"COMPOSER", "John Lennon"},
			{"ALBUMARTIST", "The Plastic Ono Band"},
			{"LABEL", "Apple Records"},
			{"DATE", "1971-10-11"},
			{"ORIGINALDATE", "1971"},
			{"TRACKNUMBER", "3/12"},
			{"MUSICBRAINZ_TRACKID", "mb-track-1"},
			{"MUSICBRAINZ_ALBUMID", "mb-album-1"},
		},
	}.Write(t, dir, "imagine.flac")

	attrs, err := newTestExtractor(nil).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "Imagine", attrs.SongTitle)
	assert.Equal(t, "John Lennon", attrs.ArtistMain)
	assert.Equal(t, "Imagine", attrs.AlbumTitle)
	assert.Equal(t, "John Lennon", attrs.Composer)
	assert.Equal(t, "The Plastic Ono Band", attrs.BandName)
	assert.Equal(t, "Apple Records", attrs.Label)
	assert.Equal(t, 1971, attrs.YearRecorded)
	assert.Equal(t, 1971, attrs.YearReleased)
	assert.Equal(t, 3, attrs.SongOrder)
	assert.Equal(t, 222, attrs.DurationSeconds)
	assert.Equal(t, "mb-track-1", attrs.MusicBrainzTrackID)
	assert.Equal(t, "mb-album-1", attrs.MusicBrainzAlbumID)
	assert.Empty(t, attrs.MusicBrainzArtistID)
	assert.Empty(t, attrs.AlbumCover)
}

func TestExtractDropsMalformedYearsAndTrackNumbers(t *testing.T) {
	cases := []struct {
		name     string
		comments [][2]string
		check    func(t *testing.T, attrs TrackAttributes)
	}{
		{
			name:     "non-numeric year",
			comments: [][2]string{{"TITLE", "x"}, {"DATE", "sometime"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Zero(t, attrs.YearRecorded)
			},
		},
		{
			name:     "year before range",
			comments: [][2]string{{"TITLE", "x"}, {"DATE", "1742"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Zero(t, attrs.YearRecorded)
			},
		},
		{
			name:     "year after range",
			comments: [][2]string{{"TITLE", "x"}, {"DATE", "2525-01-01"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Zero(t, attrs.YearRecorded)
			},
		},
		{
			name:     "boundary years accepted",
			comments: [][2]string{{"TITLE", "x"}, {"DATE", "1900"}, {"ORIGINALDATE", "2100"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Equal(t, 1900, attrs.YearRecorded)
				assert.Equal(t, 2100, attrs.YearReleased)
			},
		},
		{
			name:     "non-numeric track number",
			comments: [][2]string{{"TITLE", "x"}, {"TRACKNUMBER", "A1"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Zero(t, attrs.SongOrder)
			},
		},
		{
			name:     "plain track number",
			comments: [][2]string{{"TITLE", "x"}, {"TRACKNUMBER", "7"}},
			check: func(t *testing.T, attrs TrackAttributes) {
				assert.Equal(t, 7, attrs.SongOrder)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := flactest.File{
				SampleRate:   44100,
				TotalSamples: 44100,
				Comments:     tc.comments,
			}.Write(t, t.TempDir(), "case.flac")

			attrs, err := newTestExtractor(nil).Extract(path)
			require.NoError(t, err)
			tc.check(t, attrs)
		})
	}
}

func TestExtractStoresEmbeddedCover(t *testing.T) {
	picture := bytes.Repeat([]byte{0xAB}, 2048)
	path := flactest.File{
		SampleRate:   44100,
		TotalSamples: 44100,
		Comments: [][2]string{
			{"TITLE", "Imagine"},
			{"ARTIST", "John Lennon"},
			{"ALBUM", "Imagine"},
		},
		Picture:     picture,
		PictureMIME: "image/jpeg",
	}.Write(t, t.TempDir(), "cover.flac")

	covers := &coverRecorder{}
	attrs, err := newTestExtractor(covers).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, 1, covers.calls)
	assert.Equal(t, picture, covers.data)
	assert.Equal(t, "image/jpeg", covers.contentType)
	assert.Equal(t, "John_Lennon_Imagine", covers.stem)
	assert.NotEmpty(t, attrs.AlbumCover)
}

func TestExtractWithoutPictureIsNotAnError(t *testing.T) {
	path := flactest.File{
		SampleRate:   44100,
		TotalSamples: 44100,
		Comments:     [][2]string{{"TITLE", "Imagine"}},
	}.Write(t, t.TempDir(), "bare.flac")

	covers := &coverRecorder{}
	attrs, err := newTestExtractor(covers).Extract(path)
	require.NoError(t, err)
	assert.Zero(t, covers.calls)
	assert.Empty(t, attrs.AlbumCover)
}

func TestExtractCorruptContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.flac")
	require.NoError(t, os.WriteFile(path, []byte("not a flac stream"), 0o644))

	_, err := newTestExtractor(nil).Extract(path)
	assert.True(t, errors.Is(err, ErrNoMetadata))
}

func TestFLACDuration(t *testing.T) {
	path := flactest.File{
		SampleRate:   48000,
		TotalSamples: 48000*61 + 47999, // 61s and change, floors to 61
		Comments:     [][2]string{{"TITLE", "x"}},
	}.Write(t, t.TempDir(), "dur.flac")

	dur, err := flacDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 61, dur)
}
