package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"source":   "/mnt/camera",
		"dest":     "/srv/catalog",
		"database": "/srv/catalog/db",
		"empty":    "",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "source root", path: "/mnt/camera", want: "source"},
		{name: "source file", path: "/mnt/camera/DCIM/IMG_0001.JPG", want: "source"},
		{name: "dest artifact", path: "/srv/catalog/IMG_0001_thumbnail.jpg", want: "dest"},
		{name: "database is more specific than dest", path: "/srv/catalog/db/catalog.db", want: "database"},
		{name: "sibling prefix does not match", path: "/mnt/camera2/a.jpg", want: "unknown"},
		{name: "unknown path", path: "/etc/hosts", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/mnt/camera/a.jpg"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want %q", got, "unknown")
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	original := defaultResolver
	defer func() { defaultResolver = original }()

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"default": "/mnt"}))

	config := fastRetryConfig()
	if got := config.resolveVolume("/mnt/a.jpg"); got != "default" {
		t.Errorf("resolveVolume() = %q, want default resolver label", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"override": "/mnt"})
	if got := config.resolveVolume("/mnt/a.jpg"); got != "override" {
		t.Errorf("resolveVolume() = %q, want config resolver label", got)
	}
}

func TestStatWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(testFile, fastRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}

	_, err = StatWithRetry(filepath.Join(tmpDir, "missing.txt"), fastRetryConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StatWithRetry(missing) error = %v, want ErrNotExist", err)
	}
}

func TestOpenWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("hello"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	f, err := OpenWithRetry(testFile, fastRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	defer f.Close()

	buf := make([]byte, 5)
	if _, err := f.Read(buf); err != nil || string(buf) != "hello" {
		t.Errorf("Read() = %q, %v; want hello", buf, err)
	}
}

func TestWithRetry_RetriesStaleHandle(t *testing.T) {
	calls := 0
	got, err := withRetry("stat", "/mnt/a.jpg", fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("withRetry() = %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	config := fastRetryConfig()
	calls := 0
	_, err := withRetry("open", "/mnt/a.jpg", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != config.MaxRetries+1 {
		t.Errorf("withRetry() made %d calls, want %d", calls, config.MaxRetries+1)
	}
}

func TestWithRetry_NoRetryOnOtherErrors(t *testing.T) {
	calls := 0
	_, err := withRetry("open", "/mnt/a.jpg", fastRetryConfig(), func() (int, error) {
		calls++
		return 0, syscall.EACCES
	})
	if !errors.Is(err, syscall.EACCES) || calls != 1 {
		t.Errorf("withRetry() = %v after %d calls, want EACCES after 1", err, calls)
	}
}
