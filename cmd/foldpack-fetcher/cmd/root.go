package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okuznetsov/foldpack/internal/service/fetcher"
	"github.com/okuznetsov/foldpack/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// architecture is the target architecture identifier.
	architecture string

	// destination is where the verified binary is installed.
	destination string

	// rootCmd represents the base command for fetching the bootstrap binary.
	rootCmd = &cobra.Command{
		Use:   "foldpack-fetcher",
		Short: "Download and verify the architecture-specific bootstrap binary",
		Long: "Resolve the target architecture against the pinned profile table, " +
			"download the matching micromamba binary, verify its SHA-256 digest and " +
			"install it atomically at the destination path.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &fetcher.Options{
				ConfigPath:   configPath,
				Architecture: architecture,
				Destination:  destination,
			}

			return fetcher.Run(ctx, options)
		},
	}
)

// Execute runs the foldpack-fetcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&architecture, "arch", "a", "",
		"target architecture identifier (amd64, arm64 or ppc64le); may also come from FOLDPACK_ARCH or the settings file")
	rootCmd.Flags().StringVarP(&destination, "output", "o", fetcher.DefaultDestination,
		"path where the verified binary is installed")
}
