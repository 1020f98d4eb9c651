// Package metadata extracts capture metadata from candidate files.
//
// Each media class has its own strategy:
//
//   - Images read EXIF tags and fall back to the image header for
//     dimensions.
//   - Raw images read the same EXIF tags but take their size from the
//     largest image in the TIFF directories, SubIFDs included, since IFD0 is
//     usually the embedded preview. Implausibly small sizes are replaced by
//     what the raw developer reports.
//   - Videos are described by ffprobe, or by a probe result the caller
//     already holds ([Extractor.ExtractProbe]).
//
// Missing fields are normal and are left nil. Only a total failure to read
// the source produces an error, which wraps [ErrUnavailable].
package metadata
