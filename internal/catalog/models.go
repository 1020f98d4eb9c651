package catalog

import (
	"time"

	"media-catalog/internal/contenthash"
	"media-catalog/internal/formats"
	"media-catalog/internal/metadata"
)

// NewEntity is a row to insert for a freshly ingested file.
type NewEntity struct {
	Class         formats.MediaClass
	Format        formats.FormatKind
	OriginalPath  string
	ThumbnailPath string
	PreviewPath   string
	SizeBytes     int64
	ContentHash   contenthash.Hash
	Metadata      *metadata.CaptureMetadata
}

// Entity is a stored catalog row.
type Entity struct {
	ID            int64                     `json:"id"`
	Class         formats.MediaClass        `json:"class"`
	Format        formats.FormatKind        `json:"format"`
	MimeType      string                    `json:"mimeType"`
	OriginalPath  string                    `json:"originalPath"`
	ThumbnailPath string                    `json:"thumbnailPath"`
	PreviewPath   string                    `json:"previewPath"`
	SizeBytes     int64                     `json:"sizeBytes"`
	ContentHash   contenthash.Hash          `json:"-"`
	CapturedAt    *time.Time                `json:"capturedAt,omitempty"`
	Latitude      *float64                  `json:"latitude,omitempty"`
	Longitude     *float64                  `json:"longitude,omitempty"`
	Metadata      *metadata.CaptureMetadata `json:"metadata,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

// Stats summarizes the catalog contents.
type Stats struct {
	TotalEntities int            `json:"totalEntities"`
	ByClass       map[string]int `json:"byClass"`
	TotalBytes    int64          `json:"totalBytes"`
	LastImport    time.Time      `json:"lastImport"`
}
