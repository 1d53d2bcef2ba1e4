// Package cache provisions the auxiliary data cache consumed by the pipeline.
//
// The heavy lifting is done by the data-download utility shipped inside the
// built image; this package only prepares the directory, prevents concurrent
// provisioning runs via a marker file backed by a process-table check, and
// verifies that the downloader left something behind.
package cache
