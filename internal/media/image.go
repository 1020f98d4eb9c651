package media

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/formats"
	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
)

// ErrDecode indicates a payload could not be decoded into pixels.
var ErrDecode = errors.New("decode failed")

// Decode loads the JPEG or PNG image at path and returns it upright.
// Raw images go through a RawDeveloper and video frames come from the video
// package.
func Decode(path string, kind formats.FormatKind) (image.Image, error) {
	if kind.Class() != formats.ClassImage {
		return nil, fmt.Errorf("%w: %s is not a directly decodable format", ErrDecode, kind)
	}
	return decodeImage(path)
}

func decodeImage(path string) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	img, rotation, err := DecodeReader(file)
	if err != nil {
		return nil, err
	}
	logging.Debug("Decoded %s: %dx%d, rotation %s", path, img.Bounds().Dx(), img.Bounds().Dy(), rotation)
	return img, nil
}

// DecodeReader decodes a JPEG or PNG stream and applies its EXIF orientation.
// It also returns the rotation that was applied.
func DecodeReader(r io.ReadSeeker) (image.Image, metadata.Rotation, error) {
	rotation := metadata.ReadOrientation(r)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, metadata.Rotate0, fmt.Errorf("failed to rewind image: %w", err)
	}

	img, err := imaging.Decode(r)
	if err != nil {
		return nil, metadata.Rotate0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return Normalize(img, rotation), rotation, nil
}

// Normalize applies r to img. The result is upright, so bounding boxes and
// crop decisions made on it match what a viewer displays.
func Normalize(img image.Image, r metadata.Rotation) image.Image {
	// imaging rotates counter-clockwise
	switch r {
	case metadata.Rotate90CW:
		return imaging.Rotate270(img)
	case metadata.Rotate180:
		return imaging.Rotate180(img)
	case metadata.Rotate270CW:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
