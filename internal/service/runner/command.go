package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okuznetsov/foldpack/internal/config"
	"github.com/okuznetsov/foldpack/internal/logger"
)

const (
	// AccountEnvVar names the SLURM account used when submitting jobs.
	AccountEnvVar = "SLURM_PROJECT_ID"

	// SearchScriptFilename receives the sequence search submission script.
	SearchScriptFilename = "run_colabfold_search.sh"

	// BatchScriptFilename receives the GPU prediction submission script.
	BatchScriptFilename = "run_colabfold_batch.sh"

	// scriptFileMode makes the generated scripts directly executable.
	scriptFileMode os.FileMode = 0o755

	// Resource envelopes for the two stages.
	searchMemoryGB = 10.0
	searchMaxTime  = "08:00:00"
	batchMemoryGB  = 8.0
	batchMaxTime   = "04:00:00"
	batchCPUs      = 1
	batchGPUs      = 1

	// defaultPartition is used when the stage needs no accelerator.
	defaultPartition = "normal"
)

var (
	errMissingAccountCode = errors.New(
		"environment variable " + AccountEnvVar + " must hold the account code for job submission")
	errOutputDirNotEmpty  = errors.New("output folder is not empty, pass --force to overwrite")
	errNonPositiveCPUs    = errors.New("cpu count must be a positive integer")
	errQueryFileMissing   = errors.New("query file does not exist or is not a regular file")
	errCacheDirMissing    = errors.New("cache folder does not exist or is not a directory")
	errImageFileMissing   = errors.New("image file does not exist or is not a regular file")
)

// Options are inputs accepted by the runner entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Image is the path to the built Apptainer image.
	Image string
	// QueryFile is the FASTA file with the proteins to be modeled.
	QueryFile string
	// CacheDir is the populated data cache folder.
	CacheDir string
	// OutputDir receives the generated scripts and the pipeline output.
	OutputDir string
	// CPUs is the number of CPUs for the search stage.
	CPUs int
	// JobName is an optional human-friendly job name prefix.
	JobName string
	// Force overwrites existing output files.
	Force bool
}

// Run validates the inputs and writes the two sbatch submission scripts.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "foldpack-runner")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	image := opts.Image
	if image == "" {
		image = cfg.Image
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheDir
	}

	if err = validateInputs(image, opts.QueryFile, cacheDir, opts.CPUs); err != nil {
		return err
	}

	account := os.Getenv(AccountEnvVar)
	if account == "" {
		return errMissingAccountCode
	}

	if err = prepareOutputDir(opts.OutputDir, opts.Force); err != nil {
		return err
	}

	searchArgs, searchDir, err := searchCommand(image, opts.QueryFile, cacheDir, opts.OutputDir, opts.CPUs)
	if err != nil {
		return fmt.Errorf("build search command: %w", err)
	}

	batchArgs, err := batchCommand(image, cacheDir, searchDir, opts.OutputDir)
	if err != nil {
		return fmt.Errorf("build batch command: %w", err)
	}

	searchScript := batchScript{
		jobName:   stageJobName(opts.JobName, "colabfold_search"),
		account:   account,
		maxTime:   searchMaxTime,
		partition: defaultPartition,
		cpus:      opts.CPUs,
		memoryGB:  searchMemoryGB,
		command:   searchArgs,
	}

	predictScript := batchScript{
		jobName:   stageJobName(opts.JobName, "colabfold_batch"),
		account:   account,
		maxTime:   batchMaxTime,
		partition: defaultPartition,
		cpus:      batchCPUs,
		gpus:      batchGPUs,
		memoryGB:  batchMemoryGB,
		command:   batchArgs,
	}

	if err = writeScript(ctx, filepath.Join(opts.OutputDir, SearchScriptFilename), searchScript); err != nil {
		return err
	}

	return writeScript(ctx, filepath.Join(opts.OutputDir, BatchScriptFilename), predictScript)
}

// stageJobName derives the SBATCH job name for a stage from the optional
// user-provided prefix.
func stageJobName(prefix, stage string) string {
	if prefix == "" {
		return stage
	}

	return shellQuote(prefix + "_" + stage)
}

// validateInputs checks the filesystem preconditions before any work.
func validateInputs(image, queryFile, cacheDir string, cpus int) error {
	if cpus <= 0 {
		return errNonPositiveCPUs
	}

	if !isRegularFile(image) {
		return fmt.Errorf("%w: %q", errImageFileMissing, image)
	}

	if !isRegularFile(queryFile) {
		return fmt.Errorf("%w: %q", errQueryFileMissing, queryFile)
	}

	info, err := os.Stat(cacheDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", errCacheDirMissing, cacheDir)
	}

	return nil
}

// prepareOutputDir refuses to touch a non-empty output folder unless forced,
// then makes sure the folder exists and is free of stale scripts.
func prepareOutputDir(outputDir string, force bool) error {
	entries, err := os.ReadDir(outputDir)

	switch {
	case err != nil && errors.Is(err, os.ErrNotExist):
		// Created below.
	case err != nil:
		return fmt.Errorf("inspect output folder: %w", err)
	case len(entries) > 0 && !force:
		return fmt.Errorf("%w: %q", errOutputDirNotEmpty, outputDir)
	}

	if err = os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	if force {
		for _, name := range []string{SearchScriptFilename, BatchScriptFilename} {
			if err = os.Remove(filepath.Join(outputDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove stale script: %w", err)
			}
		}
	}

	return nil
}

// writeScript renders and writes one submission script.
func writeScript(ctx context.Context, path string, script batchScript) error {
	contents, err := script.render()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Writing submission script", "path", path)

	if err = os.WriteFile(path, []byte(contents), scriptFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// isRegularFile reports whether path exists and is a regular file.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
