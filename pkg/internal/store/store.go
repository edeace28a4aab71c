// Package store owns the durable mapping of asset identity to payload and
// sidecar on a single filesystem. Identities are store-scoped sequential
// names (video1.mp4, video2.mp4, ...) claimed at upload time.
package store

import (
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/expiry"
	"github.com/tvloop/tvloop/pkg/internal/metadata"
	"github.com/tvloop/tvloop/pkg/log"
)

var (
	// ErrInvalidName marks an identity that does not match the videoN.mp4
	// pattern. Checked before any filesystem access.
	ErrInvalidName = errors.New("invalid asset name")
	// ErrInvalidArgument marks a rejected parameter such as a non-positive
	// day count.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks an absent payload or sidecar.
	ErrNotFound = errors.New("asset not found")
	// ErrTooLarge marks a payload over the configured ceiling.
	ErrTooLarge = errors.New("payload exceeds size limit")
	// ErrInvalidFormat marks a payload that is not an MP4 container by
	// either declared content type or file extension.
	ErrInvalidFormat = errors.New("only .mp4 videos are accepted")
	// ErrStoreFull means every identity slot up to the bound is taken.
	ErrStoreFull = errors.New("no free video slots")
)

var (
	videoNamePattern   = regexp.MustCompile(`^video\d+\.mp4$`)
	sidecarNamePattern = regexp.MustCompile(`^video\d+\.xml$`)
)

// ValidVideoName reports whether name is a well-formed payload identity.
func ValidVideoName(name string) bool {
	return videoNamePattern.MatchString(name)
}

// ValidSidecarName reports whether name is a well-formed sidecar identity.
func ValidSidecarName(name string) bool {
	return sidecarNamePattern.MatchString(name)
}

// SidecarName maps a payload identity to its sidecar identity.
func SidecarName(videoName string) string {
	return strings.TrimSuffix(videoName, ".mp4") + ".xml"
}

// AllocateIdentity returns the smallest free videoN.mp4 slot given the set
// of names already in use. Pure over its inputs: the caller supplies the
// current state, nothing hidden is consulted.
func AllocateIdentity(existing map[string]struct{}, maxSlots int) (string, error) {
	for i := 1; i <= maxSlots; i++ {
		name := fmt.Sprintf("video%d.mp4", i)
		if _, taken := existing[name]; !taken {
			return name, nil
		}
	}

	return "", ErrStoreFull
}

// Asset is one stored clip summary.
type Asset struct {
	Filename    string
	Size        int64
	Created     time.Time
	HasMetadata bool
}

// UploadResult reports a completed upload.
type UploadResult struct {
	Filename   string
	Size       int64
	XMLFile    string
	Expiration string // absolute date written to the sidecar; empty if the sidecar write failed
}

// Store is the filesystem-backed asset store. The filesystem is abstracted
// behind afero so tests run against an in-memory one.
type Store struct {
	fs       afero.Fs
	dir      string
	maxSlots int
	maxBytes int64
	logger   zerolog.Logger
}

// New creates a Store over the given filesystem and ensures the videos
// directory exists.
func New(fs afero.Fs, cfg *configs.StoreConfig) (*Store, error) {
	if err := fs.MkdirAll(cfg.VideosDir, 0o755); err != nil {
		return nil, fmt.Errorf("create videos dir: %w", err)
	}

	return &Store{
		fs:       fs,
		dir:      cfg.VideosDir,
		maxSlots: cfg.MaxSlots,
		maxBytes: cfg.MaxUploadBytes(),
		logger:   log.Logger().With().Str("component", "store").Logger(),
	}, nil
}

// Upload persists a payload under the next free identity and writes its
// sidecar. The payload write happens before the sidecar write; a sidecar
// failure after a successful payload write is logged and the upload still
// succeeds, leaving an asset without an expiration marker. The slot scan is
// not safe against concurrent uploads to the same store; last writer wins.
func (s *Store) Upload(payload io.Reader, filenameHint, contentType, rawPolicy string, declaredSize int64) (*UploadResult, error) {
	if !isMP4(filenameHint, contentType) {
		return nil, ErrInvalidFormat
	}

	if declaredSize > s.maxBytes {
		return nil, ErrTooLarge
	}

	existing, err := s.existingNames()
	if err != nil {
		return nil, fmt.Errorf("scan existing assets: %w", err)
	}

	name, err := AllocateIdentity(existing, s.maxSlots)
	if err != nil {
		return nil, err
	}

	size, err := s.writePayload(name, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	marker := expiry.ResolveMarker(rawPolicy, now)
	doc := metadata.Encode(name, now, marker)

	result := &UploadResult{
		Filename:   name,
		Size:       size,
		XMLFile:    SidecarName(name),
		Expiration: marker,
	}

	if err := afero.WriteFile(s.fs, s.join(SidecarName(name)), doc, 0o644); err != nil {
		// Partial state, not corruption: the asset simply has no marker.
		s.logger.Error().Err(err).Str("video", name).Msg("sidecar write failed after payload write")

		result.Expiration = ""
	}

	return result, nil
}

// List enumerates assets by probing the bounded identity space, reporting
// filesystem-derived size and creation time and whether a sidecar exists.
func (s *Store) List() ([]Asset, error) {
	assets := make([]Asset, 0)

	for i := 1; i <= s.maxSlots; i++ {
		name := fmt.Sprintf("video%d.mp4", i)

		info, err := s.fs.Stat(s.join(name))
		if err != nil {
			continue
		}

		hasMeta, _ := afero.Exists(s.fs, s.join(SidecarName(name)))

		assets = append(assets, Asset{
			Filename:    name,
			Size:        info.Size(),
			Created:     info.ModTime(),
			HasMetadata: hasMeta,
		})
	}

	return assets, nil
}

// Delete removes a payload and best-effort removes its sidecar. A sidecar
// removal failure is logged, not surfaced; the dangling file is harmless.
func (s *Store) Delete(name string) error {
	if !ValidVideoName(name) {
		return ErrInvalidName
	}

	exists, err := afero.Exists(s.fs, s.join(name))
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, err)
	}

	if !exists {
		return ErrNotFound
	}

	if err := s.fs.Remove(s.join(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}

	sidecar := SidecarName(name)
	if exists, _ := afero.Exists(s.fs, s.join(sidecar)); exists {
		if err := s.fs.Remove(s.join(sidecar)); err != nil {
			s.logger.Warn().Err(err).Str("sidecar", sidecar).Msg("sidecar removal failed")
		}
	}

	return nil
}

// UpdateValidity rewrites an asset's expiration to today plus the given
// number of days. An existing sidecar is patched in place so unrelated
// content survives byte-for-byte; a missing one is synthesized fresh.
func (s *Store) UpdateValidity(name string, days int) (string, error) {
	if !ValidVideoName(name) {
		return "", ErrInvalidName
	}

	if days <= 0 {
		return "", fmt.Errorf("%w: expirationDays must be positive", ErrInvalidArgument)
	}

	now := time.Now()
	newMarker := expiry.FormatDate(now.AddDate(0, 0, days))
	sidecar := s.join(SidecarName(name))

	var doc []byte

	current, err := afero.ReadFile(s.fs, sidecar)
	switch {
	case err == nil:
		doc = metadata.RewriteExpiration(current, newMarker)
	default:
		doc = metadata.Encode(name, now, newMarker)
	}

	if err := afero.WriteFile(s.fs, sidecar, doc, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}

	return newMarker, nil
}

// FetchPayload streams a payload's raw bytes.
func (s *Store) FetchPayload(name string) (io.ReadCloser, int64, error) {
	if !ValidVideoName(name) {
		return nil, 0, ErrInvalidName
	}

	return s.open(name)
}

// FetchMetadata streams a sidecar's raw bytes.
func (s *Store) FetchMetadata(name string) (io.ReadCloser, int64, error) {
	if !ValidSidecarName(name) {
		return nil, 0, ErrInvalidName
	}

	return s.open(name)
}

func (s *Store) open(name string) (io.ReadCloser, int64, error) {
	info, err := s.fs.Stat(s.join(name))
	if err != nil {
		return nil, 0, ErrNotFound
	}

	f, err := s.fs.Open(s.join(name))
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", name, err)
	}

	return f, info.Size(), nil
}

// existingNames collects the payload names currently occupying slots.
func (s *Store) existingNames() (map[string]struct{}, error) {
	names := make(map[string]struct{})

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !e.IsDir() && ValidVideoName(e.Name()) {
			names[e.Name()] = struct{}{}
		}
	}

	return names, nil
}

// writePayload copies the payload to disk, enforcing the size ceiling on
// the actual byte count as well as the declared one.
func (s *Store) writePayload(name string, payload io.Reader) (int64, error) {
	f, err := s.fs.Create(s.join(name))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	written, err := io.Copy(f, io.LimitReader(payload, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = s.fs.Remove(s.join(name))

		return 0, fmt.Errorf("write %s: %w", name, err)
	}

	if written > s.maxBytes {
		_ = s.fs.Remove(s.join(name))

		return 0, ErrTooLarge
	}

	return written, nil
}

func (s *Store) join(name string) string {
	return path.Join(s.dir, name)
}

func isMP4(filename, contentType string) bool {
	if strings.EqualFold(contentType, "video/mp4") {
		return true
	}

	return strings.EqualFold(path.Ext(filename), ".mp4")
}
