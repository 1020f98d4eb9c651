package facedetect

import (
	"context"
	"errors"
	"image"
	"math"
	"time"

	"media-catalog/internal/metrics"
)

// ErrDetection indicates the detector failed for an image.
var ErrDetection = errors.New("face detection failed")

// BoundingBox is a detected face in upright pixel coordinates.
type BoundingBox struct {
	X1, Y1, X2, Y2 float32
	Confidence     float32
}

// Size returns the width and height of the box.
func (b BoundingBox) Size() (float32, float32) {
	return b.X2 - b.X1, b.Y2 - b.Y1
}

// Area returns the box area truncated to an integer.
func (b BoundingBox) Area() uint32 {
	w, h := b.Size()
	return saturate(w * h)
}

// Midpoint returns the centre of the box, truncated toward zero. Coordinates
// left of or above the image saturate to 0.
func (b BoundingBox) Midpoint() (int, int) {
	w, h := b.Size()
	return int(saturate(b.X1 + w/2)), int(saturate(b.Y1 + h/2))
}

func saturate(v float32) uint32 {
	switch {
	case v != v || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}

// Largest returns the box with the largest integer area. Ties keep the
// earliest box; boxes with zero area are only chosen when nothing larger exists.
func Largest(boxes []BoundingBox) (BoundingBox, bool) {
	if len(boxes) == 0 {
		return BoundingBox{}, false
	}

	largest := boxes[0]
	var area uint32
	for _, b := range boxes {
		if a := b.Area(); a > area {
			area = a
			largest = b
		}
	}
	return largest, true
}

// Detector finds faces in an upright image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]BoundingBox, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]BoundingBox, error)

// Detect calls f(ctx, img).
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]BoundingBox, error) {
	return f(ctx, img)
}

// None never finds a face.
var None Detector = DetectorFunc(func(context.Context, image.Image) ([]BoundingBox, error) {
	return nil, nil
})

// Instrument records invocation counts, latency and face counts for d.
func Instrument(d Detector) Detector {
	return DetectorFunc(func(ctx context.Context, img image.Image) ([]BoundingBox, error) {
		start := time.Now()
		boxes, err := d.Detect(ctx, img)
		metrics.DetectorDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.DetectorInvocationsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.DetectorInvocationsTotal.WithLabelValues("success").Inc()
		metrics.FacesDetected.Observe(float64(len(boxes)))
		return boxes, nil
	})
}
