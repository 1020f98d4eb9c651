package workers

import (
	"runtime"
)

// Count returns the number of workers for a task type. A positive override
// (INGEST_WORKERS) wins over the calculation but is still capped by limit.
// Otherwise the count is GOMAXPROCS scaled by multiplier, which respects
// container CPU limits on Go 1.19+.
//
// Use 0 for limit to leave the count uncapped.
func Count(override int, multiplier float64, limit int) int {
	if override > 0 {
		if limit > 0 && override > limit {
			return limit
		}
		return override
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU): decoding,
// resampling and JPEG encoding.
func ForCPU(override, limit int) int {
	return Count(override, 1.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU): whole-file
// ingestion, which alternates hashing and copying with image work.
func ForMixed(override, limit int) int {
	return Count(override, 1.5, limit)
}
