// Package ingest imports candidate files into the media catalog.
//
// Each file passes through a fixed chain of stages:
//
//	classify -> hash -> dedup -> copy -> decode -> detect -> thumbnail
//	-> preview -> metadata -> emit
//
// The first failing stage ends the chain and is recorded in the file's
// Result. Metadata extraction starts as soon as the original is copied and
// runs alongside rendering; its failure only leaves fields empty.
//
// A file never aborts the batch it belongs to. Importer.ImportPaths walks
// directories and imports their files concurrently, and Watcher imports files
// as they appear in a directory.
package ingest
