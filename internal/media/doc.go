// Package media turns a candidate file into its derivative renditions.
//
// Decoding yields upright pixels: JPEG and PNG images are rotated according
// to their EXIF orientation, raw images are demosaiced by an external
// dcraw-compatible RawDeveloper whose output libvips decodes. The
// face-aware crop planner then picks a 3:2 window for the 300x200 thumbnail,
// and the preview renderer bounds large images to 4096x2160.
package media
