// Package fetcher downloads and installs the architecture-specific bootstrap
// binary for the container build.
//
// The pipeline is a single linear sequence with early-exit failure branches:
// resolve the architecture profile, download to a temporary file, verify the
// SHA-256 digest, and commit atomically via rename. On any failure the
// destination is left untouched and the temporary file is removed.
package fetcher
