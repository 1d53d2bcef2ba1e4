// Package config defines the packaging settings used by the foldpack binaries
// and provides helpers to load, validate and save them in YAML format.
//
// Settings cover the artifact fetch (architecture, release version, download
// base URL, digest pins), the recipe rendering (base image, pipeline version)
// and the post-build tooling (image path, cache directory). A small set of
// FOLDPACK_* environment variables overrides the corresponding fields so the
// same knobs work as container build arguments.
package config
