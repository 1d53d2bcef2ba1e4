// Package platform contains the architecture profile domain model.
//
// A Profile pairs an architecture identifier with the download URL and the
// expected SHA-256 digest of the matching micromamba binary. The Table maps
// the closed set of supported identifiers to profiles and fails closed on
// anything else.
package platform
