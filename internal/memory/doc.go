// Package memory controls Go heap usage during large imports.
//
// Decoding a 50 megapixel raw file or a 4K video frame allocates hundreds of
// megabytes. When many such files are in flight at once the process can
// exceed its container limit long before the garbage collector reacts. This
// package provides two tools against that:
//
//   - [Configure] derives GOMEMLIMIT from the configured MEMORY_LIMIT, keeping
//     a share of memory back for libvips, ffmpeg and the detector helper.
//   - [Monitor] samples heap usage and makes [Monitor.WaitIfPaused] block new
//     files from entering the pipeline while usage is above the critical
//     watermark, resuming once it falls below the high watermark.
//
// # Configuration
//
//	limit, err := memory.ParseLimit(cfg.MemoryLimit) // "2GiB", "512MB", "1073741824"
//	if err != nil {
//	    return err
//	}
//	memory.Configure(limit, memory.DefaultMemoryRatio)
//
// An explicit GOMEMLIMIT environment variable always wins.
//
// # Backpressure
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.WaitIfPaused(ctx); err != nil {
//	    return err // context cancelled while paused
//	}
//
// A nil *Monitor never blocks, so callers that run without a limit can pass
// nil.
package memory
