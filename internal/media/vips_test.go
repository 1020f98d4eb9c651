package media

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"

	"golang.org/x/image/tiff"
)

// NOTE: govips doesn't support stopping and restarting vips in the same process.
// Once vips.Shutdown() is called, vips.Startup() cannot be called again.
// Tests that need vips run first, the shutdown test runs last.

func requireVips(t *testing.T) {
	t.Helper()
	if !IsVipsAvailable() {
		if err := InitVips(); err != nil {
			t.Skip("libvips not available in test environment")
		}
	}
}

func encodeTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("failed to encode tiff: %v", err)
	}
	return buf.Bytes()
}

func TestInitVipsIdempotency(t *testing.T) {
	if err := InitVips(); err != nil {
		t.Logf("libvips not available in test environment: %v", err)
		return
	}
	if err := InitVips(); err != nil {
		t.Errorf("Second InitVips() call failed: %v", err)
	}
	if !IsVipsAvailable() {
		t.Error("After successful InitVips, IsVipsAvailable should return true")
	}
}

func TestVipsInitializationConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = InitVips()
		}()
	}
	wg.Wait()
}

func TestDecodeVipsBuffer(t *testing.T) {
	requireVips(t)

	img, err := decodeVipsBuffer(encodeTIFF(t, 120, 80))
	if err != nil {
		t.Fatalf("decodeVipsBuffer() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("decoded size = %dx%d, want 120x80", b.Dx(), b.Dy())
	}
}

func TestDecodeVipsBufferErrors(t *testing.T) {
	requireVips(t)

	if _, err := decodeVipsBuffer([]byte("not an image")); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if _, err := decodeDeveloped(nil); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for empty output, got %v", err)
	}
}

func TestShutdownVips(t *testing.T) {
	// Must run last: vips cannot be restarted once shut down
	ShutdownVips()
	if IsVipsAvailable() {
		t.Error("IsVipsAvailable should be false after shutdown")
	}
	ShutdownVips()

	// developer output is still decoded without libvips
	img, err := decodeDeveloped(encodeTIFF(t, 30, 20))
	if err != nil {
		t.Fatalf("decodeDeveloped() without libvips error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("decoded size = %dx%d, want 30x20", b.Dx(), b.Dy())
	}
	if _, err := decodeDeveloped([]byte("garbage")); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}
