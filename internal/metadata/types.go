package metadata

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable indicates no metadata could be read from the source.
var ErrUnavailable = errors.New("metadata unavailable")

// Rotation is the clockwise rotation that turns stored pixels upright.
type Rotation int

const (
	Rotate0     Rotation = 0
	Rotate90CW  Rotation = 90
	Rotate180   Rotation = 180
	Rotate270CW Rotation = 270
)

// RotationFromDegrees maps clockwise degrees to a Rotation. Anything other
// than 90, 180 or 270 is treated as upright.
func RotationFromDegrees(deg int) Rotation {
	switch deg {
	case 90:
		return Rotate90CW
	case 180:
		return Rotate180
	case 270:
		return Rotate270CW
	default:
		return Rotate0
	}
}

// SwapsDimensions reports whether applying r exchanges width and height.
func (r Rotation) SwapsDimensions() bool {
	return r == Rotate90CW || r == Rotate270CW
}

func (r Rotation) String() string {
	switch r {
	case Rotate0:
		return "0"
	case Rotate90CW:
		return "90cw"
	case Rotate180:
		return "180"
	case Rotate270CW:
		return "270cw"
	default:
		return fmt.Sprintf("Rotation(%d)", int(r))
	}
}

// Rational is an unsigned EXIF rational such as an exposure time of 1/250.
type Rational struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

func (r Rational) String() string {
	if r.Denominator == 1 {
		return fmt.Sprintf("%d", r.Numerator)
	}
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

// Float returns the value as a float, or 0 for a zero denominator.
func (r Rational) Float() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// ImageFields are the capture settings of a still image.
type ImageFields struct {
	ExposureTime *Rational `json:"exposure_time,omitempty"`
	Aperture     *float64  `json:"aperture,omitempty"`
	ISO          *uint32   `json:"iso,omitempty"`
	Flash        *bool     `json:"flash,omitempty"`
}

// VideoFields describe a video container.
type VideoFields struct {
	Duration  float64  `json:"duration"`
	Framerate *float64 `json:"framerate,omitempty"`
}

// CaptureMetadata is what is known about how and where a file was captured.
// Exactly one of Image and Video is set.
type CaptureMetadata struct {
	Width      uint32       `json:"width"`
	Height     uint32       `json:"height"`
	CapturedAt *time.Time   `json:"captured_at,omitempty"`
	Rotation   *Rotation    `json:"rotation,omitempty"`
	Location   *Location    `json:"location,omitempty"`
	Image      *ImageFields `json:"image,omitempty"`
	Video      *VideoFields `json:"video,omitempty"`
}

// HasDimensions reports whether both dimensions are known.
func (m *CaptureMetadata) HasDimensions() bool {
	return m.Width > 0 && m.Height > 0
}
