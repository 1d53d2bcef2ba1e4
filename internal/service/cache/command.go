package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/okuznetsov/foldpack/internal/config"
	"github.com/okuznetsov/foldpack/internal/logger"
)

var (
	errProvisionerRunning = errors.New("another provisioner is already populating this cache")
	errImageRequired      = errors.New("image path must be provided via flag or settings")
	errCacheStillEmpty    = errors.New("downloader finished but the cache folder is still empty")
)

// Options are inputs accepted by the cache provisioning entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Image is the path to the built Apptainer image containing the
	// data-download utility.
	Image string
	// CacheDir is the directory to populate.
	CacheDir string
	// Force re-runs the downloader even when the cache looks populated.
	Force bool
}

// Run provisions the auxiliary data cache by invoking the download utility
// shipped inside the image. The utility itself is a black box; this service
// only prepares the directory, guards against concurrent runs and checks
// that something actually arrived.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "foldpack-cache")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	image := opts.Image
	if image == "" {
		image = cfg.Image
	}

	if image == "" {
		return errImageRequired
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheDir
	}

	empty, err := directoryIsEmpty(cacheDir)
	if err != nil {
		return fmt.Errorf("inspect cache folder: %w", err)
	}

	if !empty && !opts.Force {
		logger.InfoKV(ctx, "Cache already populated, nothing to do", "path", cacheDir)
		return nil
	}

	if err = os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache folder: %w", err)
	}

	if IsProvisionerRunningNow(ctx, cacheDir) {
		return errProvisionerRunning
	}

	markerPath := filepath.Join(cacheDir, MarkerFilename)

	marker, err := os.Create(markerPath)
	if err != nil {
		return fmt.Errorf("create provisioning marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return fmt.Errorf("close provisioning marker: %w", err)
	}

	defer func() {
		_ = os.Remove(markerPath)
	}()

	if err = runDownloader(ctx, image, cacheDir); err != nil {
		return err
	}

	empty, err = directoryIsEmpty(cacheDir)
	if err != nil {
		return fmt.Errorf("inspect cache folder: %w", err)
	}

	if empty {
		return errCacheStillEmpty
	}

	logger.InfoKV(ctx, "Cache provisioned", "path", cacheDir)

	return nil
}

// runDownloader executes the external data-download utility inside the image.
func runDownloader(ctx context.Context, image, cacheDir string) error {
	cacheAbs, err := filepath.Abs(cacheDir)
	if err != nil {
		return err
	}

	args := downloaderArgs(image, cacheAbs)

	logger.InfoKV(ctx, "Invoking data downloader", "command", args)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Run(); err != nil {
		return fmt.Errorf("data downloader failed: %w", err)
	}

	return nil
}

// downloaderArgs builds the apptainer invocation of the download utility.
// The cache directory is bound to the container path the pipeline expects.
func downloaderArgs(image, cacheAbs string) []string {
	return []string{
		"apptainer",
		"run",
		fmt.Sprintf("--bind=%s:/tmp/cache", cacheAbs),
		image,
		"python",
		"-m",
		"colabfold.download",
		"/tmp/cache",
	}
}
