package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Supported architecture identifiers. The set is closed: anything else is
// rejected, never mapped to a fallback.
const (
	ArchAMD64   = "amd64"
	ArchARM64   = "arm64"
	ArchPPC64LE = "ppc64le"
)

const (
	// DefaultDownloadBaseURL is where micromamba release binaries are hosted.
	DefaultDownloadBaseURL = "https://github.com/mamba-org/micromamba-releases/releases/download"

	// DefaultMicromambaVersion is the pinned micromamba release tag.
	DefaultMicromambaVersion = "1.5.8-0"
)

var (
	// ErrMissingArchitecture is returned when no architecture identifier was supplied.
	ErrMissingArchitecture = errors.New("architecture identifier must be provided")

	// ErrUnsupportedArchitecture is returned when the identifier is not in the supported set.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
)

// releaseNames maps architecture identifiers to micromamba release file suffixes.
//
//nolint:gochecknoglobals // Static build-time table.
var releaseNames = map[string]string{
	ArchAMD64:   "linux-64",
	ArchARM64:   "linux-aarch64",
	ArchPPC64LE: "linux-ppc64le",
}

// pinnedDigests holds the expected SHA-256 digests (lowercase hex) of the
// micromamba binaries for DefaultMicromambaVersion.
//
//nolint:gochecknoglobals // Static build-time table.
var pinnedDigests = map[string]string{
	ArchAMD64:   "b8e792e6b36118c0a4ccfd9414dc07b67fa82ceb7a74da416259062039ece249",
	ArchARM64:   "de4270f9470ef73ac869d555e113d4a8878a548ec0f4c74bce331151c5de7f0c",
	ArchPPC64LE: "13c42e0faa53fee9f5caa33f58e7f093837bf58151090cdee15c6fe60a155d18",
}

// Profile describes the downloadable artifact for one architecture.
// Profiles are immutable values constructed from static configuration.
type Profile struct {
	// Arch is the architecture identifier (one of the Arch* constants).
	Arch string
	// URL is the download location of the matching binary.
	URL string
	// SHA256 is the expected digest of the binary, lowercase hex.
	SHA256 string
}

// Table resolves architecture identifiers to profiles.
type Table struct {
	profiles map[string]Profile
}

// NewTable builds a profile table from the download base URL, the release
// version and a digest per supported architecture. Digests for unknown
// architectures are rejected so a typo cannot silently drop a pin.
func NewTable(baseURL, version string, digests map[string]string) (*Table, error) {
	if baseURL == "" {
		baseURL = DefaultDownloadBaseURL
	}

	if version == "" {
		version = DefaultMicromambaVersion
	}

	for arch := range digests {
		if _, ok := releaseNames[arch]; !ok {
			return nil, fmt.Errorf("digest for %q: %w", arch, ErrUnsupportedArchitecture)
		}
	}

	profiles := make(map[string]Profile, len(releaseNames))

	for arch, release := range releaseNames {
		digest, ok := digests[arch]
		if !ok || digest == "" {
			return nil, fmt.Errorf("no digest pinned for architecture %q", arch)
		}

		profiles[arch] = Profile{
			Arch:   arch,
			URL:    fmt.Sprintf("%s/%s/micromamba-%s", strings.TrimRight(baseURL, "/"), version, release),
			SHA256: strings.ToLower(digest),
		}
	}

	return &Table{profiles: profiles}, nil
}

// DefaultTable returns the table for the pinned micromamba release.
func DefaultTable() *Table {
	table, err := NewTable(DefaultDownloadBaseURL, DefaultMicromambaVersion, pinnedDigests)
	if err != nil {
		// The static inputs above always produce a valid table.
		panic(err)
	}

	return table
}

// PinnedDigests returns a copy of the digest pins for the default release.
func PinnedDigests() map[string]string {
	digests := make(map[string]string, len(pinnedDigests))
	for arch, digest := range pinnedDigests {
		digests[arch] = digest
	}

	return digests
}

// Resolve returns the profile whose identifier exactly equals arch.
// Matching is case-sensitive and complete: an empty identifier fails with
// ErrMissingArchitecture, an unknown one with ErrUnsupportedArchitecture
// naming the supported set.
func (t *Table) Resolve(arch string) (Profile, error) {
	if arch == "" {
		return Profile{}, ErrMissingArchitecture
	}

	profile, ok := t.profiles[arch]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedArchitecture, arch, strings.Join(t.Supported(), ", "))
	}

	return profile, nil
}

// Supported returns the supported architecture identifiers in sorted order.
func (t *Table) Supported() []string {
	supported := make([]string, 0, len(t.profiles))
	for arch := range t.profiles {
		supported = append(supported, arch)
	}

	sort.Strings(supported)

	return supported
}

// Profiles returns all profiles sorted by architecture identifier.
func (t *Table) Profiles() []Profile {
	profiles := make([]Profile, 0, len(t.profiles))
	for _, arch := range t.Supported() {
		profiles = append(profiles, t.profiles[arch])
	}

	return profiles
}

// Detect maps the running process architecture to an identifier from the
// supported set. It returns an empty string when the host architecture has no
// matching profile, so callers still go through Resolve and fail closed.
func Detect() string {
	switch runtime.GOARCH {
	case ArchAMD64, ArchARM64, ArchPPC64LE:
		return runtime.GOARCH
	default:
		return ""
	}
}
