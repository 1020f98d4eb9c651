// Package cli implements the media-catalog command line.
//
// Commands:
//
//	import PATH...     ingest files and directories into the catalog
//	watch DIR          ingest files as they are added under DIR
//	metadata PATH      print the capture metadata of a file
//	init-db            create the catalog database
//	delete --id N      remove an entity and its files
//	stats              summarize the catalog
//	version            print build information
//
// Every command accepts --config and --log-level. See package config for the
// environment variables.
package cli
