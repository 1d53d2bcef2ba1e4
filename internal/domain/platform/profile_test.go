package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolveExactMatch checks each supported identifier maps to its own
// release name and digest with no cross-wiring.
func TestResolveExactMatch(t *testing.T) {
	t.Parallel()

	table := DefaultTable()

	cases := map[string]string{
		ArchAMD64:   "micromamba-linux-64",
		ArchARM64:   "micromamba-linux-aarch64",
		ArchPPC64LE: "micromamba-linux-ppc64le",
	}

	for arch, suffix := range cases {
		profile, err := table.Resolve(arch)
		require.NoError(t, err)
		require.Equal(t, arch, profile.Arch)
		require.Contains(t, profile.URL, "/"+DefaultMicromambaVersion+"/"+suffix)
		require.Equal(t, pinnedDigests[arch], profile.SHA256)
	}
}

// TestResolveMissing fails closed on an empty identifier.
func TestResolveMissing(t *testing.T) {
	t.Parallel()

	_, err := DefaultTable().Resolve("")
	require.ErrorIs(t, err, ErrMissingArchitecture)
}

// TestResolveUnsupported rejects unknown identifiers and names the supported set.
func TestResolveUnsupported(t *testing.T) {
	t.Parallel()

	table := DefaultTable()

	for _, arch := range []string{"riscv64", "AMD64", "amd64 ", "x86_64"} {
		_, err := table.Resolve(arch)
		require.ErrorIs(t, err, ErrUnsupportedArchitecture)
		require.Contains(t, err.Error(), "amd64, arm64, ppc64le")
	}
}

// TestNewTableRequiresCompletePins refuses tables with missing or stray digests.
func TestNewTableRequiresCompletePins(t *testing.T) {
	t.Parallel()

	digests := PinnedDigests()
	delete(digests, ArchARM64)

	_, err := NewTable("", "", digests)
	require.Error(t, err)

	digests = PinnedDigests()
	digests["mips64"] = digests[ArchAMD64]

	_, err = NewTable("", "", digests)
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)
}

// TestNewTableNormalizesDigestCase stores pins lowercased.
func TestNewTableNormalizesDigestCase(t *testing.T) {
	t.Parallel()

	digests := PinnedDigests()
	digests[ArchAMD64] = "B8E792E6B36118C0A4CCFD9414DC07B67FA82CEB7A74DA416259062039ECE249"

	table, err := NewTable("", "", digests)
	require.NoError(t, err)

	profile, err := table.Resolve(ArchAMD64)
	require.NoError(t, err)
	require.Equal(t, pinnedDigests[ArchAMD64], profile.SHA256)
}

// TestDetect never returns an identifier outside the supported set.
func TestDetect(t *testing.T) {
	t.Parallel()

	arch := Detect()
	if arch == "" {
		return
	}

	_, err := DefaultTable().Resolve(arch)
	require.NoError(t, err)
}

// TestSupportedIsSorted keeps the diagnostic enumeration stable.
func TestSupportedIsSorted(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{ArchAMD64, ArchARM64, ArchPPC64LE}, DefaultTable().Supported())
}

// TestProfilesOrder follows the sorted identifier order.
func TestProfilesOrder(t *testing.T) {
	t.Parallel()

	profiles := DefaultTable().Profiles()
	require.Len(t, profiles, 3)
	require.Equal(t, ArchAMD64, profiles[0].Arch)
	require.Equal(t, ArchARM64, profiles[1].Arch)
	require.Equal(t, ArchPPC64LE, profiles[2].Arch)
}
