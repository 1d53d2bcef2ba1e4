package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okuznetsov/foldpack/internal/config"
	"github.com/okuznetsov/foldpack/internal/logger"
)

const (
	// DefaultOutputPath is where the rendered recipe is written.
	DefaultOutputPath = "Dockerfile"

	// StdoutPath selects standard output instead of a file.
	StdoutPath = "-"

	// recipeFileMode is applied to the rendered recipe file.
	recipeFileMode os.FileMode = 0o644
)

// Options are inputs accepted by the recipe entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// OutputPath is where the recipe is written; "-" means stdout.
	OutputPath string
}

// Run renders the container build recipe from configuration.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "foldpack-recipe")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	table, err := cfg.Table()
	if err != nil {
		return err
	}

	contents, err := render(table, cfg.BaseImage, cfg.ColabfoldVersion)
	if err != nil {
		return fmt.Errorf("render recipe: %w", err)
	}

	output := opts.OutputPath
	if output == "" {
		output = DefaultOutputPath
	}

	if output == StdoutPath {
		_, err = fmt.Fprint(os.Stdout, contents)
		return err
	}

	if err = os.WriteFile(filepath.Clean(output), []byte(contents), recipeFileMode); err != nil {
		return fmt.Errorf("write recipe: %w", err)
	}

	logger.InfoKV(ctx, "Recipe written",
		"path", output,
		"base_image", cfg.BaseImage,
		"micromamba_version", cfg.MicromambaVersion)

	return nil
}
