package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"

	"media-catalog/internal/logging"
)

const (
	// ThumbnailWidth and ThumbnailHeight are the exact thumbnail size.
	ThumbnailWidth  = 300
	ThumbnailHeight = 200

	// PreviewMaxWidth and PreviewMaxHeight bound the preview.
	PreviewMaxWidth  = 4096
	PreviewMaxHeight = 2160

	// JPEGQuality is used for every rendition.
	JPEGQuality = 80
)

// RenderThumbnail cuts plan out of img and scales it to exactly 300x200.
func RenderThumbnail(img image.Image, plan CropPlan) *image.NRGBA {
	switch plan.Mode {
	case CropCenterFill:
		return imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.CatmullRom)
	case CropFace:
		img = imaging.Crop(img, plan.Region.Rect(img.Bounds().Min))
	}
	return imaging.Resize(img, ThumbnailWidth, ThumbnailHeight, imaging.CatmullRom)
}

// PreviewSize returns the preview dimensions for a width x height source and
// whether resampling is needed. Portrait sources are fitted to a height of
// 2160, everything else to a width of 4096.
func PreviewSize(width, height int) (int, int, bool) {
	if width <= PreviewMaxWidth && height <= PreviewMaxHeight {
		return width, height, false
	}
	if width <= 0 || height <= 0 {
		return width, height, false
	}

	w, h := float32(width), float32(height)
	if height > width {
		return ceil32(PreviewMaxHeight * (w / h)), PreviewMaxHeight, true
	}
	return PreviewMaxWidth, ceil32(PreviewMaxWidth * (h / w)), true
}

// RenderPreview returns img bounded by PreviewSize. Images already within
// bounds are returned unchanged.
func RenderPreview(img image.Image) image.Image {
	b := img.Bounds()
	w, h, resize := PreviewSize(b.Dx(), b.Dy())
	if !resize {
		return img
	}
	logging.Debug("Preview resize %dx%d -> %dx%d", b.Dx(), b.Dy(), w, h)
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// EncodeJPEG encodes img at JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJPEG encodes img and writes it to path.
func WriteJPEG(path string, img image.Image) error {
	data, err := EncodeJPEG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
