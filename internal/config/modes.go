package config

import (
	"git.home.luguber.info/inful/portfolio/internal/foundation/normalization"
)

// RebuildMode selects how a mutation regenerates the derived tree.
type RebuildMode string

const (
	// RebuildModeInProcess runs the pipeline inside the server process.
	RebuildModeInProcess RebuildMode = "inprocess"
	// RebuildModeExec spawns `portfolio build` as a child process.
	RebuildModeExec RebuildMode = "exec"
)

var rebuildModeNormalizer = normalization.NewNormalizer(map[string]RebuildMode{
	"inprocess":  RebuildModeInProcess,
	"in-process": RebuildModeInProcess,
	"exec":       RebuildModeExec,
	"process":    RebuildModeExec,
}, RebuildModeInProcess)

// NormalizeRebuildMode returns an error for unrecognized non-empty input.
func NormalizeRebuildMode(raw string) (RebuildMode, error) {
	return rebuildModeNormalizer.NormalizeWithError(raw)
}

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, "")

// NormalizeRetryBackoff converts user input into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}
