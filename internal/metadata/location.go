package metadata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Location is a WGS84 coordinate with an optional place name.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place,omitempty"`
}

// DMS is a coordinate in degrees, minutes and seconds. The sign is carried
// separately so that 0° 30′ S can be represented.
type DMS struct {
	Degrees  float64
	Minutes  float64
	Seconds  float64
	Positive bool
}

// Decimal converts d to decimal degrees.
func (d DMS) Decimal() float64 {
	v := d.Degrees + d.Minutes/60 + d.Seconds/3600
	if !d.Positive {
		return -v
	}
	return v
}

// DMSFromDecimal splits decimal degrees into degrees, minutes and seconds.
func DMSFromDecimal(v float64) DMS {
	abs := math.Abs(v)
	deg := math.Trunc(abs)
	mins := math.Trunc((abs - deg) * 60)
	sec := (abs-deg)*3600 - mins*60
	return DMS{Degrees: deg, Minutes: mins, Seconds: sec, Positive: v >= 0}
}

// String renders the location as e.g. 59° 19′ 45.60″ N, 18° 4′ 7.20″ E.
func (l Location) String() string {
	lat := DMSFromDecimal(l.Latitude)
	lon := DMSFromDecimal(l.Longitude)
	return fmt.Sprintf("%s %c, %s %c",
		formatDMS(lat), hemisphere(lat.Positive, 'N', 'S'),
		formatDMS(lon), hemisphere(lon.Positive, 'E', 'W'))
}

func formatDMS(d DMS) string {
	d = roundSeconds(d)
	return fmt.Sprintf("%.0f° %.0f′ %.2f″", d.Degrees, d.Minutes, d.Seconds)
}

// roundSeconds rounds to hundredths of a second, carrying a full minute into
// the minutes and degrees.
func roundSeconds(d DMS) DMS {
	d.Seconds = max(math.Round(d.Seconds*100)/100, 0)
	if d.Seconds >= 60 {
		d.Seconds -= 60
		d.Minutes++
	}
	if d.Minutes >= 60 {
		d.Minutes -= 60
		d.Degrees++
	}
	return d
}

func hemisphere(positive bool, pos, neg rune) rune {
	if positive {
		return pos
	}
	return neg
}

// iso6709 matches the leading latitude and longitude of an ISO 6709 string
// such as "+58.3938+015.5612/" or "-33.8688+151.2093+012.000/".
var iso6709 = regexp.MustCompile(`^([+-]\d+(?:\.\d+)?)([+-]\d+(?:\.\d+)?)`)

// ParseISO6709 parses the decimal-degree coordinate pair written by phones
// into video containers. A trailing altitude is ignored.
func ParseISO6709(s string) (float64, float64, error) {
	m := iso6709.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("not an ISO 6709 coordinate: %q", s)
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, fmt.Errorf("coordinate out of range: %q", s)
	}
	return lat, lon, nil
}

// Geocoder resolves coordinates to a human readable place name.
type Geocoder interface {
	ReverseGeocode(latitude, longitude float64) (string, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(latitude, longitude float64) (string, error)

// ReverseGeocode calls f(latitude, longitude).
func (f GeocoderFunc) ReverseGeocode(latitude, longitude float64) (string, error) {
	return f(latitude, longitude)
}
