// Package receipt persists a small JSON record next to an installed artifact
// describing what was fetched, from where, and with which verified digest.
//
// The receipt is informational: the authoritative freshness check is always
// the digest of the artifact itself.
package receipt
