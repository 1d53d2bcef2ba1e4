package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okuznetsov/foldpack/internal/service/cache"
	"github.com/okuznetsov/foldpack/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// image is the path to the built Apptainer image.
	image string

	// cacheDir is the directory to populate.
	cacheDir string

	// force re-runs the downloader even when the cache looks populated.
	force bool

	// rootCmd represents the base command for provisioning the data cache.
	rootCmd = &cobra.Command{
		Use:   "foldpack-cache",
		Short: "Provision the auxiliary data cache for the folding pipeline",
		Long: "Populate the data cache by invoking the download utility shipped inside " +
			"the built image. A marker file plus a process-table check prevents two " +
			"provisioners racing on the same cache folder.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &cache.Options{
				ConfigPath: configPath,
				Image:      image,
				CacheDir:   cacheDir,
				Force:      force,
			}

			return cache.Run(ctx, options)
		},
	}
)

// Execute runs the foldpack-cache CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&image, "image", "i", "", "path to the built Apptainer image")
	rootCmd.Flags().StringVarP(&cacheDir, "cache-dir", "d", "", "cache directory to populate")
	rootCmd.Flags().BoolVar(&force, "force", false, "re-run the downloader even when the cache looks populated")
}
