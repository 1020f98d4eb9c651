// Package formats classifies candidate files by extension.
//
// Classification is purely name based: the extension is lower-cased and
// looked up in a fixed table. Nothing is read from disk, so a mislabelled
// file is only caught later when it fails to decode.
//
//	kind, ok := formats.Classify("IMG_0001.CR2")
//	if !ok {
//	    // skip the file
//	}
//	switch kind.Class() {
//	case formats.ClassRawImage:
//	    // demosaic through libvips
//	}
package formats
