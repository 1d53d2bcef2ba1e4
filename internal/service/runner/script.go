package runner

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Paths inside the container; the host directories are bind-mounted onto them.
const (
	containerCacheDir  = "/tmp/cache"
	containerInputDir  = "/input"
	containerOutputDir = "/output"
)

// searchOutputSubdir and predictOutputSubdir split the two pipeline stages
// inside the output directory.
const (
	searchOutputSubdir  = "search"
	predictOutputSubdir = "predict"
)

// safeShellToken matches strings that need no quoting in a POSIX shell.
var safeShellToken = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// shellQuote wraps a token in single quotes unless it is already safe,
// escaping embedded single quotes the POSIX way.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if safeShellToken.MatchString(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// batchScript describes one sbatch submission wrapping an apptainer invocation.
type batchScript struct {
	jobName   string
	account   string
	maxTime   string
	partition string
	cpus      int
	gpus      int
	memoryGB  float64
	// command is the full argument vector; the first two tokens are
	// expected to be "apptainer run".
	command []string
}

// render produces the sbatch script text: a strict-mode shell preamble,
// sorted SBATCH directives and the quoted command spread over one line per
// argument.
func (s batchScript) render() (string, error) {
	if len(s.command) < 2 || s.command[0] != "apptainer" || s.command[1] != "run" {
		return "", fmt.Errorf("command must start with \"apptainer run\", got %q", strings.Join(s.command, " "))
	}

	memPerCPU := math.Max(1.0, math.Round(s.memoryGB/float64(s.cpus)*100)/100)

	directives := []string{
		fmt.Sprintf("#SBATCH --job-name=%s", s.jobName),
		fmt.Sprintf("#SBATCH --account=%s", shellQuote(s.account)),
		fmt.Sprintf("#SBATCH --time=%s", shellQuote(s.maxTime)),
		"#SBATCH --ntasks=1",
		fmt.Sprintf("#SBATCH --mem-per-cpu=%.2gGB", memPerCPU),
		fmt.Sprintf("#SBATCH --cpus-per-task=%d", s.cpus),
	}

	partition := s.partition
	if s.gpus > 0 {
		directives = append(directives, fmt.Sprintf("#SBATCH --gpus=%d", s.gpus))
		// GPU jobs go to the accelerated partition regardless of the default.
		partition = "accel"
	}

	if partition != "" {
		directives = append(directives, fmt.Sprintf("#SBATCH --partition=%s", shellQuote(partition)))
	}

	sort.Strings(directives)

	tokens := make([]string, 0, len(s.command)-1)
	tokens = append(tokens, s.command[0]+" "+s.command[1])

	for _, tok := range s.command[2:] {
		tokens = append(tokens, shellQuote(tok))
	}

	lines := []string{
		"#!/usr/bin/env bash",
		"set -e",
		"set -u",
		"set -o pipefail",
		"",
	}
	lines = append(lines, directives...)
	lines = append(lines, "", strings.Join(tokens, " \\\n    "), "")

	return strings.Join(lines, "\n"), nil
}

// searchCommand builds the argument vector for the CPU-bound sequence search
// stage and returns it together with the host directory receiving its output.
func searchCommand(image, queryFile, cacheDir, outputDir string, cpus int) ([]string, string, error) {
	imageAbs, err := filepath.Abs(image)
	if err != nil {
		return nil, "", err
	}

	queryAbs, err := filepath.Abs(queryFile)
	if err != nil {
		return nil, "", err
	}

	cacheAbs, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, "", err
	}

	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, "", err
	}

	queryDest := containerInputDir + "/" + filepath.Base(queryAbs)
	searchDest := containerOutputDir + "/" + searchOutputSubdir

	args := []string{
		"apptainer",
		"run",
		fmt.Sprintf("--bind=%s:%s", cacheAbs, containerCacheDir),
		fmt.Sprintf("--bind=%s:%s:ro", queryAbs, queryDest),
		fmt.Sprintf("--bind=%s:%s", outputAbs, containerOutputDir),
		imageAbs,
		"--env=MMSEQS_IGNORE_INDEX=1",
		"colabfold_search",
		fmt.Sprintf("--threads=%d", cpus),
		queryDest,
		containerCacheDir,
		searchDest,
	}

	return args, filepath.Join(outputAbs, searchOutputSubdir), nil
}

// batchCommand builds the argument vector for the GPU prediction stage,
// consuming the search stage's host output directory as its input.
func batchCommand(image, cacheDir, searchDir, outputDir string) ([]string, error) {
	imageAbs, err := filepath.Abs(image)
	if err != nil {
		return nil, err
	}

	cacheAbs, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, err
	}

	searchAbs, err := filepath.Abs(searchDir)
	if err != nil {
		return nil, err
	}

	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, err
	}

	args := []string{
		"apptainer",
		"run",
		fmt.Sprintf("--bind=%s:%s", cacheAbs, containerCacheDir),
		fmt.Sprintf("--bind=%s:%s", searchAbs, containerInputDir),
		fmt.Sprintf("--bind=%s:%s", outputAbs, containerOutputDir),
		imageAbs,
		"colabfold_batch",
		containerInputDir,
		containerOutputDir + "/" + predictOutputSubdir,
	}

	return args, nil
}
