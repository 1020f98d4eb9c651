/*
Package filesystem provides resilient filesystem operations with automatic retry
logic for NFS stale file handle errors.

Import sources and the catalog destination are frequently network mounts. A
candidate file that is opened while the server is rebalancing can fail with
ESTALE even though it is perfectly readable a few milliseconds later, and a
batch import should not record that as a failed file.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

# Retry Behavior

Only ESTALE triggers a retry; every other error is returned immediately.
Defaults are 3 retries with exponential backoff from 50ms capped at 500ms.

# Volume Labels

Retry metrics are labeled with the volume a path belongs to. The CLI registers
the "dest" and "database" volumes at startup with SetDefaultVolumeResolver;
import sources and other unmatched paths are labeled "unknown".
*/
package filesystem
