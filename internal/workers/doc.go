/*
Package workers sizes the ingestion worker pools.

Two pools are involved in an import. The batch runner ingests several files
at once, and each file alternates between I/O (hashing, copying the original)
and CPU work, so it uses [ForMixed]. Decoding, resampling and encoding run on
a smaller pool sized with [ForCPU] so that a burst of large images cannot
oversubscribe the CPUs.

Both respect container CPU limits through GOMAXPROCS rather than
runtime.NumCPU, which reports the host's CPUs:

	batch := workers.ForMixed(cfg.Workers, 16)
	cpu := workers.ForCPU(0, 8)

A positive override (the INGEST_WORKERS setting) replaces the calculation and
is still capped by the limit.
*/
package workers
