package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okuznetsov/foldpack/internal/service/runner"
	"github.com/okuznetsov/foldpack/internal/version"
)

const positionalArgCount = 4

var (
	// configPath to the configuration YAML file.
	configPath string

	// cpus for the sequence search stage.
	cpus int

	// jobName is an optional human-friendly job name prefix.
	jobName string

	// force overwrites existing output files.
	force bool

	// rootCmd represents the base command for generating submission scripts.
	rootCmd = &cobra.Command{
		Use:   "foldpack-runner <image> <query-file> <cache-folder> <output-folder>",
		Short: "Generate SLURM submission scripts for the folding pipeline",
		Long: "Generate two sbatch scripts running the Apptainer image: a CPU-bound " +
			"sequence search stage and a GPU prediction stage consuming its output. " +
			"The SLURM account code is read from the " + runner.AccountEnvVar +
			" environment variable.",
		Args: cobra.ExactArgs(positionalArgCount),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &runner.Options{
				ConfigPath: configPath,
				Image:      args[0],
				QueryFile:  args[1],
				CacheDir:   args[2],
				OutputDir:  args[3],
				CPUs:       cpus,
				JobName:    jobName,
				Force:      force,
			}

			return runner.Run(ctx, options)
		},
	}
)

// Execute runs the foldpack-runner CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().IntVar(&cpus, "ncpus", 0, "maximum number of CPUs for the search stage")
	rootCmd.Flags().StringVar(&jobName, "job-name", "", "human-friendly job name prefix")
	rootCmd.Flags().BoolVar(&force, "force", false, "overwrite existing output files")

	_ = rootCmd.MarkFlagRequired("ncpus")
}
