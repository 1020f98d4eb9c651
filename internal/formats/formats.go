package formats

import (
	"path/filepath"
	"strings"
)

// FormatKind identifies a supported container format.
type FormatKind string

const (
	// JPEG is a JPEG/JFIF image.
	JPEG FormatKind = "jpeg"
	// PNG is a PNG image.
	PNG FormatKind = "png"
	// CR2 is a Canon raw image.
	CR2 FormatKind = "cr2"
	// NEF is a Nikon raw image.
	NEF FormatKind = "nef"
	// DNG is an Adobe digital negative.
	DNG FormatKind = "dng"
	// MP4 is an MPEG-4 video.
	MP4 FormatKind = "mp4"
	// MOV is a QuickTime video.
	MOV FormatKind = "mov"
)

// MediaClass groups formats by how they are decoded.
type MediaClass string

const (
	// ClassImage is decoded directly by the Go image codecs.
	ClassImage MediaClass = "image"
	// ClassRawImage needs demosaicing by an external raw developer.
	ClassRawImage MediaClass = "raw"
	// ClassVideo is decoded by extracting a single frame with ffmpeg.
	ClassVideo MediaClass = "video"
)

var extensions = map[string]FormatKind{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".cr2":  CR2,
	".nef":  NEF,
	".dng":  DNG,
	".mp4":  MP4,
	".mov":  MOV,
}

var mimeTypes = map[FormatKind]string{
	JPEG: "image/jpeg",
	PNG:  "image/png",
	CR2:  "image/x-canon-cr2",
	NEF:  "image/x-nikon-nef",
	DNG:  "image/x-adobe-dng",
	MP4:  "video/mp4",
	MOV:  "video/quicktime",
}

// Classify returns the format for a file name. The second return value is
// false when the extension is missing or not supported. A name whose only dot
// is the leading one, such as ".jpg", has no extension.
func Classify(name string) (FormatKind, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext == base {
		return "", false
	}
	kind, ok := extensions[strings.ToLower(ext)]
	return kind, ok
}

// IsSupported reports whether the file name has a supported extension.
func IsSupported(name string) bool {
	_, ok := Classify(name)
	return ok
}

// Class returns the media class of the format.
func (k FormatKind) Class() MediaClass {
	switch k {
	case CR2, NEF, DNG:
		return ClassRawImage
	case MP4, MOV:
		return ClassVideo
	default:
		return ClassImage
	}
}

// MimeType returns the MIME type for a format, or "application/octet-stream"
// for an unknown one.
func MimeType(kind FormatKind) string {
	if mime, ok := mimeTypes[kind]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Kinds returns every supported format in a stable order.
func Kinds() []FormatKind {
	return []FormatKind{JPEG, PNG, CR2, NEF, DNG, MP4, MOV}
}
