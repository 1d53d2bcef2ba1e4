package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okuznetsov/foldpack/internal/service/recipe"
	"github.com/okuznetsov/foldpack/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// outputPath receives the rendered recipe; "-" writes to stdout.
	outputPath string

	// rootCmd represents the base command for rendering the build recipe.
	rootCmd = &cobra.Command{
		Use:   "foldpack-recipe",
		Short: "Render the container build recipe from the packaging settings",
		Long: "Render the multi-stage container build recipe. The fetch stage carries " +
			"the same per-architecture URL and digest table the fetcher binary resolves " +
			"against, so recipe and tooling cannot drift apart.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &recipe.Options{
				ConfigPath: configPath,
				OutputPath: outputPath,
			}

			return recipe.Run(ctx, options)
		},
	}
)

// Execute runs the foldpack-recipe CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", recipe.DefaultOutputPath,
		"path for the rendered recipe, or - for stdout")
}
