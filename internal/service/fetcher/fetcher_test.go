package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okuznetsov/foldpack/internal/domain/platform"
	"github.com/okuznetsov/foldpack/internal/repository/receipt"
)

// payloads served per micromamba release name.
var testPayloads = map[string]string{
	"micromamba-linux-64":      "linux-64 binary payload",
	"micromamba-linux-aarch64": "linux-aarch64 binary payload",
	"micromamba-linux-ppc64le": "linux-ppc64le binary payload",
}

func digestOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// flipHex changes the first character of a hex digest to a different hex digit.
func flipHex(digest string) string {
	replacement := byte('0')
	if digest[0] == replacement {
		replacement = '1'
	}

	return string(replacement) + digest[1:]
}

// newTestServer serves the per-architecture payloads and counts requests.
func newTestServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		parts := strings.Split(r.URL.Path, "/")
		payload, ok := testPayloads[parts[len(parts)-1]]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(payload))
	}))

	t.Cleanup(server.Close)

	return server
}

func newTestTable(t *testing.T, baseURL string, digests map[string]string) *platform.Table {
	t.Helper()

	table, err := platform.NewTable(baseURL, "1.5.8-0", digests)
	require.NoError(t, err)

	return table
}

func testDigests() map[string]string {
	return map[string]string{
		platform.ArchAMD64:   digestOf(testPayloads["micromamba-linux-64"]),
		platform.ArchARM64:   digestOf(testPayloads["micromamba-linux-aarch64"]),
		platform.ArchPPC64LE: digestOf(testPayloads["micromamba-linux-ppc64le"]),
	}
}

// TestFetchRejectsWithoutNetworkIO ensures unsupported and missing identifiers
// fail before any request is made.
func TestFetchRejectsWithoutNetworkIO(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTestServer(t, &requests)
	table := newTestTable(t, server.URL, testDigests())
	f := New(table, server.Client())
	dest := filepath.Join(t.TempDir(), "micromamba")

	err := f.Fetch(context.Background(), "", dest)
	require.ErrorIs(t, err, platform.ErrMissingArchitecture)

	err = f.Fetch(context.Background(), "riscv64", dest)
	require.ErrorIs(t, err, platform.ErrUnsupportedArchitecture)

	// The supported set is part of the diagnostic.
	require.Contains(t, err.Error(), "amd64, arm64, ppc64le")

	require.Zero(t, requests.Load())
	require.NoFileExists(t, dest)
}

// TestFetchSelectsMatchingProfile checks that each identifier resolves to its
// own payload with no cross-wiring between architectures.
func TestFetchSelectsMatchingProfile(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTestServer(t, &requests)
	table := newTestTable(t, server.URL, testDigests())
	f := New(table, server.Client())

	cases := map[string]string{
		platform.ArchAMD64:   testPayloads["micromamba-linux-64"],
		platform.ArchARM64:   testPayloads["micromamba-linux-aarch64"],
		platform.ArchPPC64LE: testPayloads["micromamba-linux-ppc64le"],
	}

	for arch, payload := range cases {
		dest := filepath.Join(t.TempDir(), "micromamba-"+arch)

		require.NoError(t, f.Fetch(context.Background(), arch, dest))

		contents, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.Equal(t, payload, string(contents))
	}
}

// TestFetchChecksumMismatch verifies that a payload whose digest differs by a
// single character is rejected and the destination stays absent.
func TestFetchChecksumMismatch(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	digests := testDigests()
	digests[platform.ArchAMD64] = flipHex(digests[platform.ArchAMD64])

	server := newTestServer(t, &requests)
	table := newTestTable(t, server.URL, digests)
	f := New(table, server.Client())
	dest := filepath.Join(t.TempDir(), "micromamba")

	err := f.Fetch(context.Background(), platform.ArchAMD64, dest)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.NoFileExists(t, dest)

	// No stray temporary files either.
	entries, readErr := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

// TestFetchInstallsAndWritesReceipt covers the success path end to end.
func TestFetchInstallsAndWritesReceipt(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTestServer(t, &requests)
	table := newTestTable(t, server.URL, testDigests())

	f := New(table, server.Client())
	f.version = "1.5.8-0"

	dest := filepath.Join(t.TempDir(), "micromamba")

	require.NoError(t, f.Fetch(context.Background(), platform.ArchAMD64, dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, testPayloads["micromamba-linux-64"], string(contents))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.Equal(t, artifactFileMode, info.Mode().Perm())

	rec, err := receipt.NewFileRepository(receipt.PathFor(dest)).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, platform.ArchAMD64, rec.Architecture)
	require.Equal(t, digestOf(testPayloads["micromamba-linux-64"]), rec.SHA256)
	require.Equal(t, "1.5.8-0", rec.Version)
}

// TestFetchIsIdempotent ensures a second run with a verified destination does
// not download again and leaves the artifact byte-identical.
func TestFetchIsIdempotent(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTestServer(t, &requests)
	table := newTestTable(t, server.URL, testDigests())
	f := New(table, server.Client())
	dest := filepath.Join(t.TempDir(), "micromamba")

	require.NoError(t, f.Fetch(context.Background(), platform.ArchAMD64, dest))
	require.Equal(t, int64(1), requests.Load())

	require.NoError(t, f.Fetch(context.Background(), platform.ArchAMD64, dest))
	require.Equal(t, int64(1), requests.Load())

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, testPayloads["micromamba-linux-64"], string(contents))
}

// TestFetchBadStatus propagates a failed retrieval as an error.
func TestFetchBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	table := newTestTable(t, server.URL, testDigests())
	f := New(table, server.Client())
	dest := filepath.Join(t.TempDir(), "micromamba")

	err := f.Fetch(context.Background(), platform.ArchAMD64, dest)
	require.ErrorIs(t, err, errBadHTTPStatus)
	require.NoFileExists(t, dest)
}

// TestVerifyDigestLowercasesBothSides accepts an uppercase pin for the same bytes.
func TestVerifyDigestLowercasesBothSides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	require.NoError(t, verifyDigest(path, strings.ToUpper(digestOf("payload"))))
}
