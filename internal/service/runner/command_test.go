package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture lays out an image file, a query file and a cache directory.
func fixture(t *testing.T) (image, query, cache, output string) {
	t.Helper()

	dir := t.TempDir()
	image = filepath.Join(dir, "colabfold.sif")
	query = filepath.Join(dir, "proteins.fasta")
	cache = filepath.Join(dir, "cache")
	output = filepath.Join(dir, "out")

	require.NoError(t, os.WriteFile(image, []byte("sif"), 0o600))
	require.NoError(t, os.WriteFile(query, []byte(">p1\nMKV"), 0o600))
	require.NoError(t, os.Mkdir(cache, 0o755))

	return image, query, cache, output
}

// TestRunWritesScripts generates both stage scripts with the expected content.
func TestRunWritesScripts(t *testing.T) {
	t.Setenv(AccountEnvVar, "nn9999k")

	image, query, cache, output := fixture(t)

	err := Run(context.Background(), &Options{
		Image:     image,
		QueryFile: query,
		CacheDir:  cache,
		OutputDir: output,
		CPUs:      8,
		JobName:   "ubiquitin",
	})
	require.NoError(t, err)

	searchPath := filepath.Join(output, SearchScriptFilename)
	batchPath := filepath.Join(output, BatchScriptFilename)

	search, err := os.ReadFile(searchPath)
	require.NoError(t, err)
	require.Contains(t, string(search), "colabfold_search")
	require.Contains(t, string(search), "--threads=8")
	require.Contains(t, string(search), "#SBATCH --job-name=ubiquitin_colabfold_search")
	require.Contains(t, string(search), "#SBATCH --account=nn9999k")
	require.NotContains(t, string(search), "--gpus")

	batch, err := os.ReadFile(batchPath)
	require.NoError(t, err)
	require.Contains(t, string(batch), "colabfold_batch")
	require.Contains(t, string(batch), "#SBATCH --job-name=ubiquitin_colabfold_batch")
	require.Contains(t, string(batch), "#SBATCH --partition=accel")
	require.Contains(t, string(batch), "#SBATCH --gpus=1")

	for _, path := range []string{searchPath, batchPath} {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		require.Equal(t, scriptFileMode, info.Mode().Perm())
	}
}

// TestRunRefusesNonEmptyOutput requires --force for a populated output folder.
func TestRunRefusesNonEmptyOutput(t *testing.T) {
	t.Setenv(AccountEnvVar, "nn9999k")

	image, query, cache, output := fixture(t)

	require.NoError(t, os.Mkdir(output, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(output, "leftover.txt"), []byte("x"), 0o600))

	opts := &Options{
		Image:     image,
		QueryFile: query,
		CacheDir:  cache,
		OutputDir: output,
		CPUs:      2,
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, errOutputDirNotEmpty)

	opts.Force = true
	require.NoError(t, Run(context.Background(), opts))
	require.FileExists(t, filepath.Join(output, SearchScriptFilename))
}

// TestRunRequiresAccountCode fails when the account variable is unset.
func TestRunRequiresAccountCode(t *testing.T) {
	t.Setenv(AccountEnvVar, "")

	image, query, cache, output := fixture(t)

	err := Run(context.Background(), &Options{
		Image:     image,
		QueryFile: query,
		CacheDir:  cache,
		OutputDir: output,
		CPUs:      2,
	})
	require.ErrorIs(t, err, errMissingAccountCode)
}

// TestRunValidatesInputs rejects missing files and non-positive CPU counts
// before touching the output folder.
func TestRunValidatesInputs(t *testing.T) {
	t.Setenv(AccountEnvVar, "nn9999k")

	image, query, cache, output := fixture(t)

	err := Run(context.Background(), &Options{
		Image:     image,
		QueryFile: filepath.Join(cache, "absent.fasta"),
		CacheDir:  cache,
		OutputDir: output,
		CPUs:      2,
	})
	require.ErrorIs(t, err, errQueryFileMissing)

	err = Run(context.Background(), &Options{
		Image:     image,
		QueryFile: query,
		CacheDir:  cache,
		OutputDir: output,
		CPUs:      0,
	})
	require.ErrorIs(t, err, errNonPositiveCPUs)

	require.NoDirExists(t, output)
}
