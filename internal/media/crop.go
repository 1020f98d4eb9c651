package media

import (
	"image"
	"math"

	"media-catalog/internal/facedetect"
)

// thumbnailAspect is the width/height ratio of a thumbnail.
const thumbnailAspect float32 = 1.5

// CropMode says how a thumbnail is cut out of its source.
type CropMode int

const (
	// CropFullFrame uses the whole image, which is already 3:2.
	CropFullFrame CropMode = iota
	// CropCenterFill scales to cover the thumbnail and cuts the centre.
	CropCenterFill
	// CropFace cuts a 3:2 window around the largest detected face.
	CropFace
)

func (m CropMode) String() string {
	switch m {
	case CropFullFrame:
		return "full_frame"
	case CropCenterFill:
		return "center_fill"
	case CropFace:
		return "face"
	default:
		return "unknown"
	}
}

// CropRegion is a rectangle relative to the image origin.
type CropRegion struct {
	X, Y          int
	Width, Height int
}

// Rect returns the region as an image.Rectangle offset by origin.
func (r CropRegion) Rect(origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// CropPlan is the outcome of PlanCrop.
type CropPlan struct {
	Mode   CropMode
	Region CropRegion
}

// PlanCrop chooses the thumbnail window of a width x height upright image.
//
// Sources that are exactly 3:2 are used whole. Without faces the centre is
// kept. Otherwise the window is centred on the largest face along the axis
// that has to shrink, and shifted back inside the image when the face is near
// an edge.
func PlanCrop(width, height int, boxes []facedetect.BoundingBox) CropPlan {
	full := CropRegion{Width: width, Height: height}
	if width <= 0 || height <= 0 {
		return CropPlan{Mode: CropFullFrame, Region: full}
	}

	w, h := float32(width), float32(height)
	aspect := w / h
	if aspect == thumbnailAspect {
		return CropPlan{Mode: CropFullFrame, Region: full}
	}

	face, ok := facedetect.Largest(boxes)
	if !ok {
		return CropPlan{Mode: CropCenterFill, Region: centerRegion(width, height, aspect)}
	}
	mx, my := face.Midpoint()

	if aspect > thumbnailAspect {
		nw := min(ceil32(h*thumbnailAspect), width)
		x := clampOrigin(mx-nw/2, width-nw)
		return CropPlan{Mode: CropFace, Region: CropRegion{X: x, Width: nw, Height: height}}
	}

	nh := min(ceil32(w/thumbnailAspect), height)
	y := clampOrigin(my-nh/2, height-nh)
	return CropPlan{Mode: CropFace, Region: CropRegion{Y: y, Width: width, Height: nh}}
}

func centerRegion(width, height int, aspect float32) CropRegion {
	if aspect > thumbnailAspect {
		nw := min(ceil32(float32(height)*thumbnailAspect), width)
		return CropRegion{X: (width - nw) / 2, Width: nw, Height: height}
	}
	nh := min(ceil32(float32(width)/thumbnailAspect), height)
	return CropRegion{Y: (height - nh) / 2, Width: width, Height: nh}
}

// clampOrigin keeps a window origin within [0, limit].
func clampOrigin(v, limit int) int {
	return max(0, min(v, limit))
}

func ceil32(v float32) int {
	return int(math.Ceil(float64(v)))
}
