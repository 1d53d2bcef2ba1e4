package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okuznetsov/foldpack/internal/domain/platform"
)

// Config holds the packaging parameters shared by the foldpack binaries.
type Config struct {
	// Architecture is the target architecture identifier for artifact fetching.
	// It must name one of the supported identifiers; there is no fallback.
	Architecture string `yaml:"architecture"`
	// MicromambaVersion is the release tag of the bootstrap binary to fetch.
	MicromambaVersion string `yaml:"micromamba_version"`
	// DownloadBaseURL is the base URL hosting the per-architecture binaries.
	DownloadBaseURL string `yaml:"download_base_url"`
	// Checksums maps architecture identifiers to expected SHA-256 digests.
	// Empty means the pins for the default release are used.
	Checksums map[string]string `yaml:"checksums"`
	// BaseImage is the runtime base image reference for the rendered recipe.
	BaseImage string `yaml:"base_image"`
	// ColabfoldVersion is the pipeline version installed into the image.
	ColabfoldVersion string `yaml:"colabfold_version"`
	// Image is the path to the built Apptainer image consumed by the
	// runner and cache binaries.
	Image string `yaml:"image"`
	// CacheDir is the directory holding the auxiliary data cache.
	CacheDir string `yaml:"cache_dir"`
	// DownloadTimeout bounds a single artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "foldpack-settings.yaml"

	// DefaultBaseImage is the GPU runtime base image for the recipe.
	DefaultBaseImage = "docker.io/nvidia/cuda:12.2.2-cudnn8-runtime-ubuntu22.04"

	// DefaultColabfoldVersion is the pinned pipeline version.
	DefaultColabfoldVersion = "1.5.5"

	// DefaultCacheDirname is the default cache directory name.
	DefaultCacheDirname = "colabfold-cache"

	// DefaultDownloadTimeout bounds a single artifact download.
	// The documented contract has no timeout at all; a bound is kept so a
	// stalled transfer surfaces as an error instead of hanging the build.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables overriding the corresponding fields after load.
const (
	EnvArchitecture      = "FOLDPACK_ARCH"
	EnvMicromambaVersion = "FOLDPACK_MICROMAMBA_VERSION"
	EnvBaseImage         = "FOLDPACK_BASE_IMAGE"
	EnvDownloadBaseURL   = "FOLDPACK_DOWNLOAD_BASE_URL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// Default returns a configuration with all packaging defaults applied.
func Default() *Config {
	return &Config{
		MicromambaVersion: platform.DefaultMicromambaVersion,
		DownloadBaseURL:   platform.DefaultDownloadBaseURL,
		Checksums:         platform.PinnedDigests(),
		BaseImage:         DefaultBaseImage,
		ColabfoldVersion:  DefaultColabfoldVersion,
		CacheDir:          DefaultCacheDirname,
		DownloadTimeout:   DefaultDownloadTimeout,
	}
}

// Load reads configuration from the provided path, overlays environment
// overrides and validates essential fields. An empty path yields the defaults
// (still subject to environment overrides).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided configuration for required fields and formats,
// filling defaults where a zero value has a documented default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.MicromambaVersion == "" {
		cfg.MicromambaVersion = platform.DefaultMicromambaVersion
	}

	if cfg.DownloadBaseURL == "" {
		cfg.DownloadBaseURL = platform.DefaultDownloadBaseURL
	}

	if _, err := url.ParseRequestURI(cfg.DownloadBaseURL); err != nil {
		return fmt.Errorf("invalid download base URL: %w", err)
	}

	if len(cfg.Checksums) == 0 {
		cfg.Checksums = platform.PinnedDigests()
	}

	if cfg.BaseImage == "" {
		cfg.BaseImage = DefaultBaseImage
	}

	if cfg.ColabfoldVersion == "" {
		cfg.ColabfoldVersion = DefaultColabfoldVersion
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDirname
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	return nil
}

// Table builds the architecture profile table described by the configuration.
func (c *Config) Table() (*platform.Table, error) {
	return platform.NewTable(c.DownloadBaseURL, c.MicromambaVersion, c.Checksums)
}

// applyEnvOverrides overlays the supported environment variables onto cfg.
// Build arguments of the container recipe use the same names, keeping one
// configuration surface for local runs and image builds.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvArchitecture); v != "" {
		cfg.Architecture = v
	}

	if v := os.Getenv(EnvMicromambaVersion); v != "" {
		cfg.MicromambaVersion = v
	}

	if v := os.Getenv(EnvBaseImage); v != "" {
		cfg.BaseImage = v
	}

	if v := os.Getenv(EnvDownloadBaseURL); v != "" {
		cfg.DownloadBaseURL = v
	}
}
