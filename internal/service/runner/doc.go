// Package runner generates SLURM submission scripts that execute the built
// Apptainer image on an HPC cluster.
//
// Two scripts are produced per invocation: a CPU-bound sequence search stage
// and a GPU prediction stage consuming the search output. Host directories
// are bind-mounted to fixed container paths, every token is shell-quoted and
// the SBATCH directives are emitted in sorted order so the scripts diff
// cleanly between runs.
package runner
