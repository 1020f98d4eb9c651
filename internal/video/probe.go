package video

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Prober describes a video container.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// ProbeResult is the subset of ffprobe's JSON output used by the catalog.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one stream of a container.
type Stream struct {
	Index        int               `json:"index"`
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Tags         map[string]string `json:"tags"`
	SideDataList []SideData        `json:"side_data_list"`
}

// SideData carries per-stream side data such as a display matrix.
type SideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// Format is the container-level description.
type Format struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	Tags       map[string]string `json:"tags"`
}

// ParseProbe decodes ffprobe's -print_format json output.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed ffprobe output: %w", ErrExternalTool, err)
	}
	return &result, nil
}

// VideoStream returns the container's only video stream. Containers with no
// video stream or with several are rejected.
func (p *ProbeResult) VideoStream() (*Stream, error) {
	var found *Stream
	for i := range p.Streams {
		if p.Streams[i].CodecType != "video" {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("expected exactly one video stream, found more")
		}
		found = &p.Streams[i]
	}
	if found == nil {
		return nil, fmt.Errorf("no video stream found")
	}
	return found, nil
}

// Duration returns the container duration in seconds.
func (p *ProbeResult) Duration() (float64, error) {
	if p.Format.Duration == "" {
		return 0, fmt.Errorf("container has no duration")
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(p.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", p.Format.Duration, err)
	}
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("invalid duration %q", p.Format.Duration)
	}
	return d, nil
}

// FormatTag returns a container tag.
func (p *ProbeResult) FormatTag(key string) (string, bool) {
	v, ok := p.Format.Tags[key]
	return v, ok && v != ""
}

// Rotation returns the clockwise display rotation of the stream in degrees.
// The rotate tag is preferred; newer ffprobe builds only report a display
// matrix, whose counter-clockwise angle is converted. ok is false when the
// stream carries neither.
func (s *Stream) Rotation() (int, bool) {
	if v, found := s.Tags["rotate"]; found {
		switch v {
		case "90":
			return 90, true
		case "180":
			return 180, true
		case "270":
			return 270, true
		default:
			return 0, true
		}
	}

	for _, sd := range s.SideDataList {
		if sd.SideDataType != "Display Matrix" {
			continue
		}
		deg := (-int(sd.Rotation)%360 + 360) % 360
		switch deg {
		case 90, 180, 270:
			return deg, true
		default:
			return 0, true
		}
	}
	return 0, false
}
