// Package video wraps the FFmpeg command line tools used during ingestion.
//
// It supports:
//   - Probing a container with ffprobe's JSON output (streams, duration, tags)
//   - Extracting a single raw RGB frame at a timestamp with ffmpeg
//   - Taking the midpoint snapshot used as a video's thumbnail source
//
// Both binaries must be installed; their paths are configurable and default
// to the names found on PATH.
package video
