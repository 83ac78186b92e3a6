package preflight

import (
	"context"

	"mangarecap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes the applicable preflight checks. Online renders also probe
// the LLM and MangaDex endpoints.
func RunAll(ctx context.Context, cfg *config.Config, online bool) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Video.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, uint64(cfg.Video.MinFreeMiB)<<20))
	}

	if !online {
		return results
	}
	results = append(results, CheckLLM(ctx, "Classification LLM", cfg.GetLLM()))
	if narration := cfg.NarrationLLM(); narration.Model != cfg.GetLLM().Model {
		results = append(results, CheckLLM(ctx, "Narration LLM", narration))
	}
	results = append(results, CheckMangaDex(ctx, cfg.MangaDex.BaseURL))
	return results
}
