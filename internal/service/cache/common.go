package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/okuznetsov/foldpack/internal/logger"
)

const (
	// MarkerFilename marks that a provisioner is working on the cache
	// directory to avoid two runs racing on the same download.
	MarkerFilename = ".foldpack-cache-marker"

	// provisionerExecutable is the binary name looked up in the process
	// table when deciding whether a marker is stale.
	provisionerExecutable = "foldpack-cache"
)

// IsProvisionerRunningNow checks for the marker file in the cache directory.
// A marker left behind by a crashed run is recovered by scanning the process
// table: if no other provisioner process exists, the marker is removed.
func IsProvisionerRunningNow(ctx context.Context, cacheDir string) bool {
	markerPath := filepath.Join(cacheDir, MarkerFilename)

	_, err := os.Stat(markerPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}

		logger.Infof(ctx, "Unable to read provisioning marker: %v", err)

		return false
	}

	logger.Info(ctx, "Provisioning marker found, checking the process table")

	running, err := anotherProvisionerExists()
	if err != nil {
		// Cannot prove the marker is stale; assume the other run is alive.
		logger.Infof(ctx, "Unable to inspect the process table: %v", err)
		return true
	}

	if running {
		return true
	}

	logger.Info(ctx, "Marker is stale, removing it")

	if err = os.Remove(markerPath); err != nil {
		return true
	}

	return false
}

// anotherProvisionerExists scans the process table for a second provisioner.
func anotherProvisionerExists() (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == provisionerExecutable {
			return true, nil
		}
	}

	return false, nil
}

// directoryIsEmpty reports whether the directory has no entries besides the
// provisioning marker. A missing directory counts as empty.
func directoryIsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}

		return false, err
	}

	for _, entry := range entries {
		if entry.Name() != MarkerFilename && !strings.HasPrefix(entry.Name(), ".") {
			return false, nil
		}
	}

	return true, nil
}
