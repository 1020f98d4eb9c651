// Package contenthash computes the content identity of catalog entries.
//
// Identity is the SHA3-256 digest of the file bytes. Two files with equal
// digests are the same entity regardless of name or location.
package contenthash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"media-catalog/internal/filesystem"
)

// ChunkSize is the read size used while streaming content into the digest.
const ChunkSize = 4096

// ErrIO indicates the content could not be read.
var ErrIO = errors.New("content could not be read")

// Hash is a SHA3-256 digest.
type Hash [32]byte

// String returns the lower-case hex encoding of the digest.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters, used to disambiguate file names.
func (h Hash) Short() string {
	return h.String()[:8]
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHex parses a 64 character hex digest.
func ParseHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid content hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid content hash %q: want %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// FromReader streams r into the digest in ChunkSize reads.
func FromReader(r io.Reader) (Hash, error) {
	var h Hash
	digest := sha3.New256()
	buf := make([]byte, ChunkSize)

	if _, err := io.CopyBuffer(digest, onlyReader{r}, buf); err != nil {
		return h, fmt.Errorf("%w: %w", ErrIO, err)
	}

	copy(h[:], digest.Sum(nil))
	return h, nil
}

// FromBytes digests an in-memory buffer.
func FromBytes(data []byte) Hash {
	return Hash(sha3.Sum256(data))
}

// FromPath opens path, tolerating stale NFS handles, and digests its content.
func FromPath(path string) (Hash, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	return FromReader(f)
}

// onlyReader hides WriterTo so io.CopyBuffer uses the fixed-size buffer.
type onlyReader struct {
	io.Reader
}
