package facedetect

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/semaphore"
)

type limited struct {
	next Detector
	sem  *semaphore.Weighted
}

// Limit bounds the number of concurrent Detect calls on d to n. Callers
// waiting for a slot give up when their context ends.
func Limit(d Detector, n int) Detector {
	if n < 1 {
		n = 1
	}
	return &limited{next: d, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limited) Detect(ctx context.Context, img image.Image) ([]BoundingBox, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for detector: %w", ErrDetection, err)
	}
	defer l.sem.Release(1)

	return l.next.Detect(ctx, img)
}
