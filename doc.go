// Package main provides the entry point for the media-catalog command.
//
// media-catalog ingests photos, raw images and videos into a destination
// directory and a sqlite catalog. Each file is identified by the SHA3-256 of
// its content, so importing the same bytes twice is a no-op.
//
// # Ingestion Pipeline
//
// Every candidate file passes through a fixed sequence of stages:
//
//  1. Classify: the extension selects the format and media class
//  2. Hash: the content digest is computed while streaming the file
//  3. Dedup: content already in the catalog is reported and left alone
//  4. Copy: the original is copied to the destination under a free name
//  5. Decode: pixels are decoded and rotated upright (videos: the middle frame)
//  6. Detect: faces are located by the configured detector
//  7. Thumbnail: a 300x200 crop centered on the largest face
//  8. Preview: a copy bounded to 4096x2160
//  9. Metadata: EXIF or container metadata, read alongside rendering
//  10. Emit: the entity is recorded in the catalog
//
// A file that fails at any stage leaves no files behind and never stops the
// rest of the batch.
//
// # Background Services
//
// Long running commands (import, watch) also start:
//
//   - Memory Monitor: holds back new files while the heap is near its limit
//   - Metrics Collector: refreshes catalog gauges every 30 seconds
//   - Metrics Server: serves /metrics, /healthz, /stats and /version when
//     METRICS_ADDR is set
//
// See package config for configuration and package cli for the commands.
package main
