// Package artifacts persists audio files and cover art to the configured
// storage backend and resolves stored references into fetchable URLs.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/config"
)

var (
	// ErrUnsupportedFile is returned for audio uploads whose extension is
	// not on the allow-list.
	ErrUnsupportedFile = errors.New("file type not allowed")

	// ErrCoverTooSmall is returned when a downloaded cover is below the
	// minimum plausible size and was discarded as a placeholder.
	ErrCoverTooSmall = errors.New("downloaded cover art below minimum size")
)

// MinCoverBytes is the smallest downloaded cover accepted. Anything below is
// treated as a failed or placeholder download.
const MinCoverBytes = 1024

// Key prefixes within the object storage buckets and the local upload tree.
const (
	audioObjectPrefix = "audio/raw/"
	coverObjectPrefix = "cover-art/"
	audioLocalPrefix  = "audio/"
	coverLocalPrefix  = "images/"
)

// allowedAudioExtensions is the fixed allow-list of accepted containers.
var allowedAudioExtensions = map[string]bool{
	".flac": true,
}

// Store writes artifacts either to the local upload tree or, when object
// storage is configured, to the configured buckets. References returned by
// the store are opaque keys resolved through ResolveURL. Stored objects are
// never mutated or deleted once a reference has been handed out.
type Store struct {
	uploadDir string
	cdnDomain string
	object    *ObjectStore
	log       hclog.Logger
}

// NewStore creates an artifact store rooted at the configured upload
// directory. object may be nil when no object storage is configured.
func NewStore(cfg config.StorageConfig, object *ObjectStore, log hclog.Logger) (*Store, error) {
	s := &Store{
		uploadDir: cfg.UploadDir,
		cdnDomain: cfg.CDNDomain,
		object:    object,
		log:       log.Named("artifacts"),
	}
	for _, dir := range []string{audioLocalPrefix, coverLocalPrefix} {
		if err := os.MkdirAll(filepath.Join(cfg.UploadDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return s, nil
}

// StoreAudio persists an uploaded audio file under a freshly generated
// filename, keeping only the original extension. The local copy is always
// written so the file can be served and its tags read; when object storage is
// configured the bytes are additionally uploaded to the raw-audio bucket.
func (s *Store) StoreAudio(ctx context.Context, r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedAudioExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, originalName)
	}

	name := uuid.New().String() + ext
	ref := audioLocalPrefix + name
	fullPath := filepath.Join(s.uploadDir, audioLocalPrefix, name)

	if err := s.writeFile(fullPath, r); err != nil {
		return "", err
	}
	s.log.Info("saved uploaded audio file", "ref", ref)

	if s.object != nil {
		f, err := os.Open(fullPath)
		if err != nil {
			return "", fmt.Errorf("failed to reopen stored audio: %w", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to stat stored audio: %w", err)
		}
		key := audioObjectPrefix + name
		if err := s.object.PutAudio(ctx, key, f, info.Size()); err != nil {
			return "", fmt.Errorf("failed to upload audio to object storage: %w", err)
		}
		s.log.Info("uploaded audio to object storage", "key", key)
	}

	return ref, nil
}

// StoreCover persists cover art bytes under a filename derived from the
// given stem plus a random suffix, with the extension inferred from the
// content type. With object storage configured the cover goes to the
// cover-art bucket instead of local disk.
func (s *Store) StoreCover(data []byte, contentType, stem string) (string, error) {
	name := fmt.Sprintf("cover_%s_%s%s", stem, uuid.New().String(), extensionForContentType(contentType))

	if s.object != nil {
		key := coverObjectPrefix + name
		if err := s.object.PutCover(context.Background(), key, data, contentType); err != nil {
			return "", fmt.Errorf("failed to upload cover to object storage: %w", err)
		}
		s.log.Info("uploaded cover art to object storage", "key", key)
		return key, nil
	}

	ref := coverLocalPrefix + name
	if err := s.writeFile(filepath.Join(s.uploadDir, coverLocalPrefix, name), bytes.NewReader(data)); err != nil {
		return "", err
	}
	s.log.Info("saved cover art", "ref", ref)
	return ref, nil
}

// StoreDownloadedCover persists a cover fetched from a remote archive.
// Downloads below MinCoverBytes are rejected and removed; callers treat the
// rejection as "no artwork", not as a pipeline failure.
func (s *Store) StoreDownloadedCover(data []byte, contentType, stem string) (string, error) {
	ref, err := s.StoreCover(data, contentType, stem)
	if err != nil {
		return "", err
	}
	if len(data) >= MinCoverBytes {
		return ref, nil
	}

	s.log.Warn("discarding undersized cover download", "ref", ref, "bytes", len(data))
	if s.object != nil {
		if err := s.object.RemoveCover(context.Background(), ref); err != nil {
			s.log.Error("failed to remove undersized cover object", "ref", ref, "error", err)
		}
	} else {
		if err := os.Remove(filepath.Join(s.uploadDir, filepath.FromSlash(ref))); err != nil {
			s.log.Error("failed to remove undersized cover file", "ref", ref, "error", err)
		}
	}
	return "", ErrCoverTooSmall
}

// LocalPath returns the on-disk location of a locally stored reference.
func (s *Store) LocalPath(ref string) string {
	return filepath.Join(s.uploadDir, filepath.FromSlash(ref))
}

// UploadDir returns the root of the local upload tree.
func (s *Store) UploadDir() string {
	return s.uploadDir
}

// ResolveURL turns a stored reference into a fetchable URL. References under
// the cover-art prefix are rewritten onto the CDN when one is configured; the
// legacy local images/ prefix maps onto the CDN's cover-art/ prefix so URLs
// minted before object storage was enabled keep working.
func (s *Store) ResolveURL(ref, baseURL string) string {
	if ref == "" {
		return ""
	}
	if s.cdnDomain != "" {
		switch {
		case strings.HasPrefix(ref, coverObjectPrefix):
			return "https://" + s.cdnDomain + "/" + ref
		case strings.HasPrefix(ref, coverLocalPrefix):
			return "https://" + s.cdnDomain + "/" + coverObjectPrefix + strings.TrimPrefix(ref, coverLocalPrefix)
		}
	}
	return strings.TrimRight(baseURL, "/") + "/files/" + path.Clean(ref)
}

// writeFile writes through a temporary file and renames into place so a
// partially written artifact is never visible under its final name.
func (s *Store) writeFile(fullPath string, r io.Reader) error {
	tmp := fullPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

var stemStrip = regexp.MustCompile(`[^\w-]`)

// CoverStem builds the filesystem-safe "artist_album" stem used in cover art
// filenames. Tag content never reaches a filename unsanitized.
func CoverStem(artist, album string) string {
	if artist == "" {
		artist = "unknown"
	}
	if album == "" {
		album = "unknown"
	}
	stem := strings.Join(strings.Fields(artist+" "+album), "_")
	stem = stemStrip.ReplaceAllString(stem, "")
	stem = strings.Trim(stem, "_")
	if stem == "" {
		stem = "unknown"
	}
	return stem
}

// extensionForContentType maps a declared image content type onto a file
// extension, defaulting to .jpg the way the cover archive mostly serves JPEG.
func extensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
