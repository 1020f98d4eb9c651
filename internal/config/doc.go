// Package config loads the media catalog configuration and logs the startup
// environment.
//
// Configuration is read in three layers, each overriding the previous one:
//
//  1. Built-in defaults
//  2. An optional TOML file (config.toml in the working directory, or the
//     path given with --config)
//  3. Environment variables
//
// Environment variables:
//
//	DEST_DIR              directory receiving originals and renditions (default: ./media)
//	DATABASE_DIR          directory holding catalog.db (default: ./database)
//	INGEST_WORKERS        files imported concurrently (default: auto)
//	CPU_WORKERS           decode and render pool size (default: one per CPU)
//	FILE_TIMEOUT          per-file processing limit, e.g. "2m" (default: 5m, 0 disables)
//	DETECTOR_CMD          face detection helper executable (default: none)
//	DETECTOR_CONCURRENCY  concurrent detector invocations (default: 1)
//	FFMPEG_PATH           ffmpeg executable (default: ffmpeg)
//	FFPROBE_PATH          ffprobe executable (default: ffprobe)
//	RAW_DEVELOPER         dcraw-compatible raw converter (default: dcraw)
//	METRICS_ADDR          listen address for /metrics, e.g. ":9090" (default: disabled)
//	WATCH_DEBOUNCE        quiet period before a watched file is imported (default: 2s)
//	MEMORY_LIMIT          soft memory limit, e.g. "2GiB" (default: GOMEMLIMIT)
//
// Load validates the destination and database directories, creating them when
// missing and failing when they are not writable.
package config
