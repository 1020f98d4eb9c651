package ingest

import (
	"errors"
	"fmt"
	"time"

	"media-catalog/internal/contenthash"
	"media-catalog/internal/formats"
	"media-catalog/internal/metadata"
)

// Stage names, also used as the "stage" metric label.
const (
	StageClassify  = "classify"
	StageHash      = "hash"
	StageDedup     = "dedup"
	StageCopy      = "copy"
	StageDecode    = "decode"
	StageDetect    = "detect"
	StageThumbnail = "thumbnail"
	StagePreview   = "preview"
	StageMetadata  = "metadata"
	StageEmit      = "emit"
)

var (
	// ErrUnknownFormat marks a file whose extension is not supported.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrIO marks a failure to read the source or write a derivative.
	ErrIO = contenthash.ErrIO
	// ErrDuplicateContent marks content that is already cataloged.
	ErrDuplicateContent = errors.New("duplicate content")
)

// StageError records the stage at which a file failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal state of a file.
type Outcome int

const (
	Imported Outcome = iota
	AlreadyPresent
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Imported:
		return "imported"
	case AlreadyPresent:
		return "already_present"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ArtifactSet locates the files written for an imported entity.
type ArtifactSet struct {
	OriginalPath  string `json:"originalPath"`
	ThumbnailPath string `json:"thumbnailPath"`
	PreviewPath   string `json:"previewPath"`
}

// Result describes what happened to one candidate file.
type Result struct {
	Path    string
	Outcome Outcome
	// Stage is the failing stage for Failed results.
	Stage string
	Err   error

	Class  formats.MediaClass
	Format formats.FormatKind
	Hash   contenthash.Hash
	Size   int64

	Artifacts ArtifactSet
	Metadata  *metadata.CaptureMetadata

	// EntityID is the new catalog row for Imported results.
	EntityID int64
	// ExistingID is the row already holding the content for AlreadyPresent results.
	ExistingID int64

	Duration time.Duration
}

// Summary totals a batch.
type Summary struct {
	RunID          string
	Total          int
	Imported       int
	AlreadyPresent int
	Skipped        int
	Failed         int
	WalkErrors     int
	Bytes          int64
	Duration       time.Duration
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r.Outcome {
	case Imported:
		s.Imported++
		s.Bytes += r.Size
	case AlreadyPresent:
		s.AlreadyPresent++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	}
}
