package constants

// Token budgets for model requests. The hard ceiling is the largest request
// the provider accepts; the default leaves headroom for prompt wrapping.
const (
	DefaultTokenBudget = 3000
	MaxTokenBudget     = 7000

	// BytesPerToken is the estimation coefficient: tokens ≈ ceil(utf8_bytes / 4).
	BytesPerToken = 4
)

// Retry and dispatch defaults.
const (
	DefaultMaxAttempts = 3
	DefaultConcurrency = 1

	// MaxConsecutiveFailures is the run-level threshold: once this many
	// chunks fail back to back, remaining dispatch is aborted.
	MaxConsecutiveFailures = 3
)
