package preflight

import (
	"context"

	"github.com/apartmentlines/audio-processing/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir))

	if cfg.Pipeline.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace("Data directory free space", cfg.Paths.DataDir, cfg.Pipeline.MinFreeGiB))
	}

	results = append(results, CheckBinaryDeps(ctx, cfg)...)

	return results
}
