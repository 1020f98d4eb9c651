package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ErrExternalTool indicates ffprobe or ffmpeg failed or produced unusable output.
var ErrExternalTool = errors.New("external tool failure")

// Tools locates the ffprobe and ffmpeg binaries.
type Tools struct {
	FFprobePath string
	FFmpegPath  string
}

// New returns Tools using the given binaries, falling back to the names on PATH.
func New(ffprobePath, ffmpegPath string) *Tools {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Tools{FFprobePath: ffprobePath, FFmpegPath: ffmpegPath}
}

// Available reports whether both binaries can be found.
func (t *Tools) Available() bool {
	if _, err := exec.LookPath(t.FFprobePath); err != nil {
		return false
	}
	_, err := exec.LookPath(t.FFmpegPath)
	return err == nil
}

// run executes a tool and returns its stdout.
func (t *Tools) run(ctx context.Context, tool, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ExternalToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExternalToolInvocationsTotal.WithLabelValues(tool, "error").Inc()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrExternalTool, tool, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s error: %w - %s", ErrExternalTool, tool, err, stderr.String())
	}
	metrics.ExternalToolInvocationsTotal.WithLabelValues(tool, "success").Inc()
	return stdout.Bytes(), nil
}

// Probe describes the container at path.
func (t *Tools) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := t.run(ctx, "ffprobe", t.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}
	return ParseProbe(out)
}

// ExtractFrame decodes the frame at the given offset in seconds. width and
// height must be the display dimensions of the frame, i.e. already swapped
// for rotated streams, since ffmpeg applies the rotation while decoding.
func (t *Tools) ExtractFrame(ctx context.Context, path string, at float64, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrExternalTool, width, height)
	}

	out, err := t.run(ctx, "ffmpeg", t.FFmpegPath,
		"-loglevel", "-8",
		"-ss", strconv.FormatFloat(at, 'f', -1, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-pix_fmt", "rgb24",
		"-vcodec", "rawvideo",
		"-",
	)
	if err != nil {
		return nil, err
	}

	img, err := FrameFromRGB24(out, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalTool, err)
	}
	return img, nil
}

// FrameFromRGB24 builds an image from packed rgb24 pixels.
func FrameFromRGB24(data []byte, width, height int) (*image.RGBA, error) {
	want := width * height * 3
	if len(data) != want {
		return nil, fmt.Errorf("frame is %d bytes, expected %d for %dx%d", len(data), want, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < want; i, j = i+3, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// FrameSize returns the dimensions of a decoded frame for a stream stored as
// width x height with the given clockwise rotation.
func FrameSize(width, height, rotation int) (int, int) {
	if rotation == 90 || rotation == 270 {
		return height, width
	}
	return width, height
}

// SnapshotTime picks the offset used for a video's thumbnail frame. The
// midpoint avoids the black frames and titles at either end.
func SnapshotTime(duration float64) float64 {
	return duration / 2
}

// Snapshot probes the video at path and extracts its midpoint frame.
func (t *Tools) Snapshot(ctx context.Context, path string) (*image.RGBA, *ProbeResult, error) {
	probe, err := t.Probe(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	stream, err := probe.VideoStream()
	if err != nil {
		return nil, probe, fmt.Errorf("%w: %w", ErrExternalTool, err)
	}
	duration, err := probe.Duration()
	if err != nil {
		return nil, probe, fmt.Errorf("%w: %w", ErrExternalTool, err)
	}

	rotation, _ := stream.Rotation()
	width, height := FrameSize(stream.Width, stream.Height, rotation)
	at := SnapshotTime(duration)
	logging.Debug("snapshot %s at %.3fs (%dx%d, rotation %d)", path, at, width, height, rotation)

	frame, err := t.ExtractFrame(ctx, path, at, width, height)
	if err != nil {
		return nil, probe, err
	}
	return frame, probe, nil
}
