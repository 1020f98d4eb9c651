package contenthash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Known SHA3-256 digests.
const (
	emptyDigest = "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	abcDigest   = "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
)

func TestFromReaderKnownDigests(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: emptyDigest},
		{name: "abc", input: "abc", want: abcDigest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromReader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("FromReader() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("FromReader(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromReaderMatchesFromBytes(t *testing.T) {
	// Spans several chunks and ends mid-chunk
	data := bytes.Repeat([]byte("0123456789abcdef"), ChunkSize/4+3)

	streamed, err := FromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("FromReader() error = %v", err)
	}
	if streamed != FromBytes(data) {
		t.Errorf("streamed digest %s differs from in-memory digest %s", streamed, FromBytes(data))
	}
}

func TestHashIsSensitiveToEveryByte(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 3*ChunkSize)
	base := FromBytes(data)

	for _, pos := range []int{0, ChunkSize - 1, ChunkSize, len(data) - 1} {
		mutated := append([]byte(nil), data...)
		mutated[pos] ^= 0x01
		if FromBytes(mutated) == base {
			t.Errorf("flipping a bit at offset %d did not change the digest", pos)
		}
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "copy-of-a.jpg")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("abc"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ha, err := FromPath(a)
	if err != nil {
		t.Fatalf("FromPath() error = %v", err)
	}
	hb, err := FromPath(b)
	if err != nil {
		t.Fatalf("FromPath() error = %v", err)
	}
	if ha != hb || ha.String() != abcDigest {
		t.Errorf("FromPath digests = %s, %s; want both %s", ha, hb, abcDigest)
	}

	_, err = FromPath(filepath.Join(dir, "missing.jpg"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("FromPath(missing) error = %v, want ErrIO wrapping ErrNotExist", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestFromReaderWrapsReadErrors(t *testing.T) {
	_, err := FromReader(failingReader{})
	if !errors.Is(err, ErrIO) {
		t.Errorf("FromReader() error = %v, want ErrIO", err)
	}
}

func TestParseHex(t *testing.T) {
	h, err := ParseHex(abcDigest)
	if err != nil {
		t.Fatalf("ParseHex() error = %v", err)
	}
	if h.String() != abcDigest {
		t.Errorf("round trip = %s, want %s", h, abcDigest)
	}
	if h.Short() != "3a985da7" {
		t.Errorf("Short() = %s, want 3a985da7", h.Short())
	}

	for _, bad := range []string{"", "zz", abcDigest[:62]} {
		if _, err := ParseHex(bad); err == nil {
			t.Errorf("ParseHex(%q) should fail", bad)
		}
	}
}
