// Package exiftest builds EXIF blocks and JPEG files carrying them, for tests
// of code that reads capture metadata.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// IFD paths accepted by Tag.IFD.
const (
	IFD0 = "IFD"
	Exif = "IFD/Exif"
	GPS  = "IFD/GPSInfo"
)

// Tag is one standard tag to encode. Value must use the go-exif
// representation of the tag's type, e.g. []uint16 for SHORT, string for
// ASCII or []exifcommon.Rational for RATIONAL.
type Tag struct {
	IFD   string
	Name  string
	Value interface{}
}

// Rational is shorthand for a single RATIONAL value.
func Rational(num, den uint32) []exifcommon.Rational {
	return []exifcommon.Rational{{Numerator: num, Denominator: den}}
}

// DMS is shorthand for a GPS degrees, minutes, seconds triple.
func DMS(deg, mins, sec uint32) []exifcommon.Rational {
	return []exifcommon.Rational{
		{Numerator: deg, Denominator: 1},
		{Numerator: mins, Denominator: 1},
		{Numerator: sec, Denominator: 1},
	}
}

// Encode returns the TIFF-structured EXIF block holding tags.
func Encode(tags ...Tag) ([]byte, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()
	root := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	for _, tag := range tags {
		ib := root
		if tag.IFD != "" && tag.IFD != IFD0 {
			ib, err = exif.GetOrCreateIbFromRootIb(root, tag.IFD)
			if err != nil {
				return nil, fmt.Errorf("ifd %s: %w", tag.IFD, err)
			}
		}
		if err := ib.AddStandardWithName(tag.Name, tag.Value); err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag.Name, err)
		}
	}

	return exif.NewIfdByteEncoder().EncodeToExif(root)
}

// JPEG encodes a flat grey w x h JPEG with an APP1 segment holding tags.
func JPEG(w, h int, tags ...Tag) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0x80, 0x80, 0x80, 0xff
	}
	return WithExif(img, tags...)
}

// WithExif encodes img as a JPEG with an APP1 segment holding tags.
func WithExif(img image.Image, tags ...Tag) ([]byte, error) {
	var plain bytes.Buffer
	if err := jpeg.Encode(&plain, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return plain.Bytes(), nil
	}

	block, err := Encode(tags...)
	if err != nil {
		return nil, err
	}

	payload := append([]byte("Exif\x00\x00"), block...)
	if len(payload)+2 > 0xffff {
		return nil, fmt.Errorf("exif block too large: %d bytes", len(payload))
	}

	src := plain.Bytes()
	var out bytes.Buffer
	out.Write(src[:2]) // SOI
	out.Write([]byte{0xff, 0xe1})
	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(len(payload)+2))
	out.Write(size[:])
	out.Write(payload)
	out.Write(src[2:])
	return out.Bytes(), nil
}

// Marker returns a w x h image that is black except for a red pixel at
// (0, 0), useful for checking rotations.
func Marker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	return img
}
