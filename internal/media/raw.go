package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// rawTool labels developer invocations in the external tool metrics.
const rawTool = "dcraw"

// RawDeveloper demosaics camera raw files with an external dcraw-compatible
// converter.
//
// CR2, NEF and DNG files are TIFF containers whose first IFD is usually an
// embedded preview, so generic TIFF loaders (libvips included) never see the
// sensor data. The developer is the only decoder that does.
type RawDeveloper struct {
	// Command is the developer executable.
	Command string
	// Args are placed before the developer options.
	Args []string
	// Env is appended to the current environment.
	Env []string
}

// NewRawDeveloper returns a developer running command, or dcraw from PATH
// when command is empty.
func NewRawDeveloper(command string) *RawDeveloper {
	if command == "" {
		command = "dcraw"
	}
	return &RawDeveloper{Command: command}
}

// Available reports whether the developer executable can be found.
func (d *RawDeveloper) Available() bool {
	_, err := exec.LookPath(d.Command)
	return err == nil
}

func (d *RawDeveloper) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.Command, append(append([]string{}, d.Args...), args...)...)
	if len(d.Env) > 0 {
		cmd.Env = append(os.Environ(), d.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ExternalToolDuration.WithLabelValues(rawTool).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExternalToolInvocationsTotal.WithLabelValues(rawTool, "error").Inc()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: raw developer: %w", ErrDecode, ctx.Err())
		}
		return nil, fmt.Errorf("%w: raw developer error: %w - %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}
	metrics.ExternalToolInvocationsTotal.WithLabelValues(rawTool, "success").Inc()
	return stdout.Bytes(), nil
}

// Dimensions reports the developed size of the raw image at path without
// decoding pixels. The size is in stored orientation, like EXIF ImageWidth.
func (d *RawDeveloper) Dimensions(ctx context.Context, path string) (int, int, error) {
	out, err := d.run(ctx, "-i", "-v", "-t", "0", path)
	if err != nil {
		return 0, 0, err
	}
	w, h, ok := parseDevelopedSize(out)
	if !ok {
		return 0, 0, fmt.Errorf("%w: raw developer reported no size for %s", ErrDecode, path)
	}
	logging.Debug("Raw developer measured %s: %dx%d", filepath.Base(path), w, h)
	return w, h, nil
}

// Develop demosaics the raw image at path with the camera white balance. The
// camera's orientation flag is applied, so the result is upright.
func (d *RawDeveloper) Develop(ctx context.Context, path string) (image.Image, error) {
	out, err := d.run(ctx, "-c", "-w", "-T", path)
	if err != nil {
		return nil, err
	}
	img, err := decodeDeveloped(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Debug("Developed %s: %dx%d", filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

// decodeDeveloped decodes the TIFF written by the developer, through libvips
// when it is running.
func decodeDeveloped(data []byte) (image.Image, error) {
	if IsVipsAvailable() {
		return decodeVipsBuffer(data)
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid developer output: %w", ErrDecode, err)
	}
	return img, nil
}

// sizeLine matches the "Image size:" and "Output size:" lines of dcraw -i -v.
var sizeLine = regexp.MustCompile(`(?m)^(Output|Image) size:\s+(\d+)\s*x\s*(\d+)`)

// parseDevelopedSize prefers the output size, which accounts for pixel aspect
// and margins, over the raw sensor size.
func parseDevelopedSize(out []byte) (int, int, bool) {
	var w, h int
	found := false
	for _, m := range sizeLine.FindAllSubmatch(out, -1) {
		mw, errW := strconv.Atoi(string(m[2]))
		mh, errH := strconv.Atoi(string(m[3]))
		if errW != nil || errH != nil || mw <= 0 || mh <= 0 {
			continue
		}
		if string(m[1]) == "Output" {
			return mw, mh, true
		}
		if !found {
			w, h, found = mw, mh, true
		}
	}
	return w, h, found
}
