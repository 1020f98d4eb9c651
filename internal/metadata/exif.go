package metadata

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// EXIF tag IDs read by the extractor.
const (
	tagImageWidth       = 0x0100
	tagImageLength      = 0x0101
	tagOrientation      = 0x0112
	tagDateTime         = 0x0132
	tagExposureTime     = 0x829a
	tagFNumber          = 0x829d
	tagISO              = 0x8827
	tagDateTimeOriginal = 0x9003
	tagApertureValue    = 0x9202
	tagFlash            = 0x9209
	tagPixelXDimension  = 0xa002
	tagPixelYDimension  = 0xa003

	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
)

const exifTimeLayout = "2006:01:02 15:04:05"

var errNoExif = exif.ErrNoExif

// flashFired lists the EXIF Flash values that mean the flash fired.
var flashFired = map[uint32]bool{
	0x01: true, 0x05: true, 0x07: true, 0x09: true, 0x0d: true, 0x0f: true,
	0x19: true, 0x1d: true, 0x1f: true, 0x41: true, 0x45: true, 0x47: true,
	0x49: true, 0x4d: true, 0x4f: true, 0x59: true, 0x5d: true, 0x5f: true,
}

type tagGroup int

const (
	groupPrimary tagGroup = iota
	groupGPS
)

type tagKey struct {
	group tagGroup
	id    uint16
}

// exifTags indexes the primary image's tags. IFD0 and its Exif sub-IFD share
// the primary group; the thumbnail IFD is ignored.
type exifTags map[tagKey]exif.ExifTag

// readExif locates and parses an EXIF block in r. It returns errNoExif when
// the source has none.
func readExif(r io.Reader) (exifTags, error) {
	raw, err := exif.SearchAndExtractExifWithReader(r)
	if err != nil {
		if errors.Is(err, errNoExif) {
			return nil, err
		}
		return nil, fmt.Errorf("exif: error reading possible exif data: %w", err)
	}

	flat, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("exif: error parsing exif data: %w", err)
	}

	tags := make(exifTags, len(flat))
	for _, t := range flat {
		var group tagGroup
		switch t.IfdPath {
		case "IFD", "IFD/Exif":
			group = groupPrimary
		case "IFD/GPSInfo":
			group = groupGPS
		default:
			continue
		}
		key := tagKey{group: group, id: t.TagId}
		// IFD0 is enumerated before IFD1; keep the primary image's value
		if _, seen := tags[key]; !seen {
			tags[key] = t
		}
	}
	return tags, nil
}

func (t exifTags) uint(group tagGroup, id uint16) (uint32, bool) {
	tag, ok := t[tagKey{group, id}]
	if !ok {
		return 0, false
	}
	switch v := tag.Value.(type) {
	case []uint16:
		if len(v) > 0 {
			return uint32(v[0]), true
		}
	case []uint32:
		if len(v) > 0 {
			return v[0], true
		}
	case []uint8:
		if len(v) > 0 {
			return uint32(v[0]), true
		}
	case uint16:
		return uint32(v), true
	case uint32:
		return v, true
	}
	return 0, false
}

func (t exifTags) rationals(group tagGroup, id uint16) []exifcommon.Rational {
	tag, ok := t[tagKey{group, id}]
	if !ok {
		return nil
	}
	v, _ := tag.Value.([]exifcommon.Rational)
	return v
}

func (t exifTags) rational(group tagGroup, id uint16) (exifcommon.Rational, bool) {
	v := t.rationals(group, id)
	if len(v) == 0 || v[0].Denominator == 0 {
		return exifcommon.Rational{}, false
	}
	return v[0], true
}

func (t exifTags) string(group tagGroup, id uint16) (string, bool) {
	tag, ok := t[tagKey{group, id}]
	if !ok {
		return "", false
	}
	s, ok := tag.Value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	return s, s != ""
}

// orientation maps the EXIF Orientation tag. Mirrored orientations are not
// supported and yield no rotation.
func (t exifTags) orientation() *Rotation {
	v, ok := t.uint(groupPrimary, tagOrientation)
	if !ok {
		return nil
	}
	var r Rotation
	switch v {
	case 1:
		r = Rotate0
	case 3:
		r = Rotate180
	case 6:
		r = Rotate90CW
	case 8:
		r = Rotate270CW
	default:
		return nil
	}
	return &r
}

func (t exifTags) capturedAt() *time.Time {
	for _, id := range []uint16{tagDateTimeOriginal, tagDateTime} {
		s, ok := t.string(groupPrimary, id)
		if !ok {
			continue
		}
		ts, err := time.ParseInLocation(exifTimeLayout, s, time.UTC)
		if err != nil {
			continue
		}
		return &ts
	}
	return nil
}

func (t exifTags) dimensions() (uint32, uint32, bool) {
	w, wok := t.uint(groupPrimary, tagImageWidth)
	h, hok := t.uint(groupPrimary, tagImageLength)
	if wok && hok && w > 0 && h > 0 {
		return w, h, true
	}
	w, wok = t.uint(groupPrimary, tagPixelXDimension)
	h, hok = t.uint(groupPrimary, tagPixelYDimension)
	if wok && hok && w > 0 && h > 0 {
		return w, h, true
	}
	return 0, 0, false
}

func (t exifTags) imageFields() *ImageFields {
	fields := &ImageFields{}

	if r, ok := t.rational(groupPrimary, tagExposureTime); ok {
		fields.ExposureTime = &Rational{Numerator: r.Numerator, Denominator: r.Denominator}
	}

	// APEX aperture value wins over the direct f-number
	if r, ok := t.rational(groupPrimary, tagApertureValue); ok {
		apex := float64(r.Numerator) / float64(r.Denominator)
		f := math.Exp2(apex / 2)
		fields.Aperture = &f
	} else if r, ok := t.rational(groupPrimary, tagFNumber); ok {
		f := float64(r.Numerator) / float64(r.Denominator)
		fields.Aperture = &f
	}

	if iso, ok := t.uint(groupPrimary, tagISO); ok {
		fields.ISO = &iso
	}

	if flash, ok := t.uint(groupPrimary, tagFlash); ok {
		fired := flashFired[flash]
		fields.Flash = &fired
	}

	return fields
}

// gps returns the decimal coordinate from the GPS IFD. A missing hemisphere
// reference is treated as north or east.
func (t exifTags) gps() (float64, float64, bool) {
	lat, ok := t.dms(tagGPSLatitude, tagGPSLatitudeRef, "S")
	if !ok {
		return 0, 0, false
	}
	lon, ok := t.dms(tagGPSLongitude, tagGPSLongitudeRef, "W")
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

func (t exifTags) dms(valueID, refID uint16, negativeRef string) (float64, bool) {
	parts := t.rationals(groupGPS, valueID)
	if len(parts) != 3 {
		return 0, false
	}
	var values [3]float64
	for i, p := range parts {
		if p.Denominator == 0 {
			return 0, false
		}
		values[i] = float64(p.Numerator) / float64(p.Denominator)
	}
	ref, _ := t.string(groupGPS, refID)
	d := DMS{
		Degrees:  values[0],
		Minutes:  values[1],
		Seconds:  values[2],
		Positive: !strings.EqualFold(ref, negativeRef),
	}
	return d.Decimal(), true
}

// ReadOrientation reads the EXIF orientation of an image stream. Sources
// without EXIF or with an unsupported orientation are treated as upright.
func ReadOrientation(r io.Reader) Rotation {
	tags, err := readExif(r)
	if err != nil {
		return Rotate0
	}
	if rot := tags.orientation(); rot != nil {
		return *rot
	}
	return Rotate0
}
