// Package catalog stores ingested media entities in SQLite.
//
// It provides:
//   - Schema creation for the entity table
//   - Lookup by content hash, used for deduplication before any rendering
//   - Insertion guarded by a UNIQUE content_hash constraint, so concurrent
//     imports of identical files resolve to a single row
//   - Aggregate statistics for the stats command and Prometheus gauges
//
// The database uses WAL mode for concurrent access.
package catalog
