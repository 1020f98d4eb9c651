package metadata

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG header decoding
	_ "image/png"  // register PNG header decoding
	"io"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/formats"
	"media-catalog/internal/logging"
	"media-catalog/internal/video"
)

// Raw converters often report the size of an embedded preview instead of the
// sensor. Anything smaller than this is re-measured with a full decode.
const (
	MinRawWidth  = 600
	MinRawHeight = 400
)

// Container tags holding a video's location, in order of preference.
var videoLocationKeys = []string{
	"location",
	"com.apple.quicktime.location.ISO6709",
	"location-eng",
}

const videoFramerateKey = "com.android.capture.fps"

// RawDimensionsFunc returns the size of a fully developed raw image.
type RawDimensionsFunc func(ctx context.Context, path string) (width, height int, err error)

// Extractor reads capture metadata with a strategy per media class.
type Extractor struct {
	prober        video.Prober
	rawDimensions RawDimensionsFunc
	geocoder      Geocoder
}

// NewExtractor creates an extractor. Any collaborator may be nil: without a
// prober videos yield no metadata, without rawDimensions raw sizes are not
// corrected, and without a geocoder locations have no place name.
func NewExtractor(prober video.Prober, rawDimensions RawDimensionsFunc, geocoder Geocoder) *Extractor {
	return &Extractor{
		prober:        prober,
		rawDimensions: rawDimensions,
		geocoder:      geocoder,
	}
}

// Extract reads the metadata of the file at path. Fields that cannot be read
// are left empty; an error wrapping ErrUnavailable is returned only when
// nothing could be read at all.
func (e *Extractor) Extract(ctx context.Context, path string, kind formats.FormatKind) (*CaptureMetadata, error) {
	var (
		meta *CaptureMetadata
		err  error
	)

	switch kind.Class() {
	case formats.ClassImage:
		meta, err = e.extractImage(path, kind)
	case formats.ClassRawImage:
		meta, err = e.extractRaw(ctx, path, kind)
	case formats.ClassVideo:
		meta, err = e.extractVideo(ctx, path)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrUnavailable, kind)
	}
	if err != nil {
		return nil, err
	}

	e.resolvePlace(path, meta)
	return meta, nil
}

func (e *Extractor) extractImage(path string, kind formats.FormatKind) (*CaptureMetadata, error) {
	return e.extractStill(path, kind, headerDimensions)
}

func (e *Extractor) extractRaw(ctx context.Context, path string, kind formats.FormatKind) (*CaptureMetadata, error) {
	meta, err := e.extractStill(path, kind, tiffDimensions)
	if err != nil {
		// the demosaic fallback can still recover a size
		meta = &CaptureMetadata{Image: &ImageFields{}}
	}

	if meta.Width >= MinRawWidth && meta.Height >= MinRawHeight {
		return meta, nil
	}

	log := logging.ForFile(path)
	if e.rawDimensions == nil {
		if err != nil {
			return nil, err
		}
		log.Debug("raw dimensions %dx%d look like a preview, no decoder to verify", meta.Width, meta.Height)
		return meta, nil
	}

	w, h, derr := e.rawDimensions(ctx, path)
	if derr != nil || w <= 0 || h <= 0 {
		if err != nil {
			return nil, errors.Join(err, derr)
		}
		log.Warn("failed to measure raw image, keeping %dx%d: %v", meta.Width, meta.Height, derr)
		return meta, nil
	}

	log.Debug("raw dimensions %dx%d replaced by decoded size %dx%d", meta.Width, meta.Height, w, h)
	meta.Width, meta.Height = uint32(w), uint32(h)
	return meta, nil
}

type dimensionsFunc func(r io.ReadSeeker) (uint32, uint32, error)

// extractStill reads EXIF from a still image, falling back to the image
// header when EXIF is absent or lacks a size. Raw files are always measured
// from their TIFF directories since EXIF only describes IFD0.
func (e *Extractor) extractStill(path string, kind formats.FormatKind, dims dimensionsFunc) (*CaptureMetadata, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	log := logging.ForFile(path)
	meta := &CaptureMetadata{Image: &ImageFields{}}

	tags, err := readExif(f)
	switch {
	case err == nil:
		fromExif(tags, meta)
	case errors.Is(err, errNoExif):
		log.Debug("no exif data in %s file", kind)
	default:
		log.Debug("unreadable exif data: %v", err)
	}

	if meta.HasDimensions() && kind.Class() != formats.ClassRawImage {
		return meta, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	w, h, err := dims(f)
	if err != nil {
		if tags == nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		log.Debug("no dimensions in image header: %v", err)
		return meta, nil
	}
	if uint64(w)*uint64(h) > uint64(meta.Width)*uint64(meta.Height) {
		meta.Width, meta.Height = w, h
	}
	return meta, nil
}

func fromExif(tags exifTags, meta *CaptureMetadata) {
	if w, h, ok := tags.dimensions(); ok {
		meta.Width, meta.Height = w, h
	}
	meta.CapturedAt = tags.capturedAt()
	meta.Rotation = tags.orientation()
	if lat, lon, ok := tags.gps(); ok {
		meta.Location = &Location{Latitude: lat, Longitude: lon}
	}
	meta.Image = tags.imageFields()
}

func headerDimensions(r io.ReadSeeker) (uint32, uint32, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return uint32(cfg.Width), uint32(cfg.Height), nil
}

func (e *Extractor) extractVideo(ctx context.Context, path string) (*CaptureMetadata, error) {
	if e.prober == nil {
		return nil, fmt.Errorf("%w: no video prober configured", ErrUnavailable)
	}

	probe, err := e.prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return FromProbe(path, probe)
}

// ExtractProbe builds video metadata from an ffprobe description the caller
// already holds, resolving the place like Extract does.
func (e *Extractor) ExtractProbe(path string, probe *video.ProbeResult) (*CaptureMetadata, error) {
	if probe == nil {
		return nil, fmt.Errorf("%w: no probe result", ErrUnavailable)
	}
	meta, err := FromProbe(path, probe)
	if err != nil {
		return nil, err
	}
	e.resolvePlace(path, meta)
	return meta, nil
}

// FromProbe builds video metadata from an ffprobe description.
func FromProbe(path string, probe *video.ProbeResult) (*CaptureMetadata, error) {
	stream, err := probe.VideoStream()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	duration, err := probe.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	log := logging.ForFile(path)
	meta := &CaptureMetadata{
		Width:  uint32(max(stream.Width, 0)),
		Height: uint32(max(stream.Height, 0)),
		Video:  &VideoFields{Duration: duration},
	}

	if deg, ok := stream.Rotation(); ok {
		r := RotationFromDegrees(deg)
		meta.Rotation = &r
	}

	if s, ok := probe.FormatTag("creation_time"); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			ts = ts.UTC().Truncate(time.Second)
			meta.CapturedAt = &ts
		} else {
			log.Debug("invalid creation_time %q: %v", s, err)
		}
	}

	if s, ok := probe.FormatTag(videoFramerateKey); ok {
		if fps, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			meta.Video.Framerate = &fps
		}
	}

	for _, key := range videoLocationKeys {
		s, ok := probe.FormatTag(key)
		if !ok {
			continue
		}
		lat, lon, err := ParseISO6709(s)
		if err != nil {
			log.Debug("ignoring %s tag: %v", key, err)
			continue
		}
		meta.Location = &Location{Latitude: lat, Longitude: lon}
		break
	}

	return meta, nil
}

func (e *Extractor) resolvePlace(path string, meta *CaptureMetadata) {
	if e.geocoder == nil || meta.Location == nil {
		return
	}
	place, err := e.geocoder.ReverseGeocode(meta.Location.Latitude, meta.Location.Longitude)
	if err != nil {
		logging.ForFile(path).Warn("reverse geocoding failed: %v", err)
		return
	}
	meta.Location.Place = place
}
