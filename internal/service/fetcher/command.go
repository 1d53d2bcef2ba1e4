package fetcher

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/okuznetsov/foldpack/internal/config"
	"github.com/okuznetsov/foldpack/internal/domain/platform"
	"github.com/okuznetsov/foldpack/internal/logger"
	"github.com/okuznetsov/foldpack/internal/repository/receipt"
)

var (
	// ErrChecksumMismatch is returned when the downloaded artifact's digest
	// does not equal the pinned digest for the resolved architecture.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// errBadHTTPStatus is returned on a non-OK response from the download endpoint.
	errBadHTTPStatus = errors.New("unexpected http status")
)

const (
	// DefaultDestination is where the verified binary lands when no
	// destination is provided.
	DefaultDestination = "micromamba"

	// artifactFileMode is applied to the installed binary.
	artifactFileMode os.FileMode = 0o755
)

// Options are inputs accepted by the fetcher entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Architecture is the target architecture identifier. When empty, the
	// configuration (file or FOLDPACK_ARCH) must supply it; there is no
	// silent default to the host architecture.
	Architecture string
	// Destination is the path where the verified binary is installed.
	Destination string
}

// Run executes the fetch pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "foldpack-fetcher")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	table, err := cfg.Table()
	if err != nil {
		return err
	}

	arch := strings.TrimSpace(opts.Architecture)
	if arch == "" {
		arch = cfg.Architecture
	}

	dest := opts.Destination
	if dest == "" {
		dest = DefaultDestination
	}

	f := New(table, &http.Client{Timeout: cfg.DownloadTimeout})
	f.version = cfg.MicromambaVersion

	if err = f.Fetch(ctx, arch, dest); err != nil {
		logger.ErrorKV(ctx, "Fetch failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Artifact ready", "path", dest)

	return nil
}

// Fetcher resolves an architecture identifier against the profile table,
// downloads the matching artifact and installs it after digest verification.
type Fetcher struct {
	table   *platform.Table
	client  *http.Client
	version string
}

// New creates a Fetcher using the provided profile table and HTTP client.
// A nil client falls back to a default client without a timeout.
func New(table *platform.Table, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{
		table:  table,
		client: client,
	}
}

// Fetch runs the linear pipeline: resolve, short-circuit on a current
// destination, download to a temporary file, verify, commit. Every failure
// branch is terminal and leaves the destination untouched.
func (f *Fetcher) Fetch(ctx context.Context, arch, dest string) error {
	profile, err := f.table.Resolve(arch)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Resolved architecture profile",
		"architecture", profile.Arch, "url", profile.URL)

	current, err := destinationIsCurrent(dest, profile.SHA256)
	if err != nil {
		return fmt.Errorf("inspect destination: %w", err)
	}

	if current {
		logger.InfoKV(ctx, "Destination already verified, skipping download", "path", dest)
		return nil
	}

	tempPath, err := f.download(ctx, profile)
	if err != nil {
		return err
	}

	// The temporary file must not survive any exit path; success only
	// needs it until the commit rename has happened.
	defer func() {
		if _, statErr := os.Stat(tempPath); statErr == nil {
			_ = os.Remove(tempPath)
		}
	}()

	if err = verifyDigest(tempPath, profile.SHA256); err != nil {
		return err
	}

	logger.Info(ctx, "Digest verified, committing artifact")

	if err = commit(tempPath, dest, profile.SHA256); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}

	if err = f.writeReceipt(ctx, profile, dest); err != nil {
		// The artifact itself is installed and verified; a receipt
		// failure must not undo that.
		logger.WarnKV(ctx, "Unable to write install receipt", "error", err)
	}

	return nil
}

// download retrieves the profile URL into a temporary file and returns its path.
func (f *Fetcher) download(ctx context.Context, profile platform.Profile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile.URL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", profile.URL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", profile.URL, response.Status, errBadHTTPStatus)
	}

	tempFile, err := os.CreateTemp("", "foldpack-fetch-*")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}

	tempPath := tempFile.Name()

	if err = copyAndClose(tempFile, response.Body); err != nil {
		_ = os.Remove(tempPath)

		return "", fmt.Errorf("write temporary file: %w", err)
	}

	logger.DebugKV(ctx, "Downloaded artifact", "path", tempPath)

	return tempPath, nil
}

// commit installs the verified temporary file at dest. go-update re-checks
// the digest while staging and renames into place, so the destination either
// holds the fully verified artifact or its previous content.
func commit(tempPath, dest, expectedHex string) error {
	checksum, err := decodeDigest(expectedHex)
	if err != nil {
		return err
	}

	// go-update replaces an existing target; seed an empty one on first install.
	seeded := false

	if _, err = os.Stat(dest); err != nil && os.IsNotExist(err) {
		var seed *os.File

		if seed, err = os.Create(dest); err != nil {
			return err
		}

		if err = seed.Close(); err != nil {
			return err
		}

		seeded = true
	}

	tempFile, err := os.Open(filepath.Clean(tempPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = tempFile.Close()
	}()

	options := goupdate.Options{
		TargetPath: dest,
		TargetMode: artifactFileMode,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(tempFile, options); err != nil {
		// Leave no empty placeholder behind on a failed first install.
		if seeded {
			_ = os.Remove(dest)
		}

		return err
	}

	// go-update keeps the previous binary around; remove it.
	oldPath := dest + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}

// writeReceipt records the install next to the artifact.
func (f *Fetcher) writeReceipt(ctx context.Context, profile platform.Profile, dest string) error {
	repo := receipt.NewFileRepository(receipt.PathFor(dest))

	return repo.Save(ctx, &receipt.Receipt{
		Architecture: profile.Arch,
		Version:      f.version,
		URL:          profile.URL,
		SHA256:       profile.SHA256,
		InstalledAt:  time.Now().UTC(),
	})
}
