package core

import (
	"fmt"

	"github.com/StarHydra/docstruct/constants"
	"github.com/StarHydra/docstruct/internal/dedupe"
)

// ExtractionFailedError marks a chunk whose remote call failed after all
// retries. The chunk's contribution is dropped; the run continues.
type ExtractionFailedError struct {
	ChunkIndex int
	Err        error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Err }

// ChunkReport is the per-chunk line of the run summary.
type ChunkReport struct {
	Index    int
	Status   constants.ChunkStatus
	Records  int
	Error    string
	Warnings []string
}

// RunSummary accompanies the final table; skipped chunks and parse warnings
// are surfaced here, never silently swallowed.
type RunSummary struct {
	RunID     string
	Chunks    int
	Succeeded int
	Failed    int
	Skipped   int
	Records   int // extracted records folded into the canonical set
	Rows      int
	Overflows []string
	Reports   []ChunkReport
	Aborted   bool
	ElapsedMS int64
}

// Warnings flattens every per-chunk warning in chunk order.
func (s *RunSummary) Warnings() []string {
	var out []string
	for _, r := range s.Reports {
		out = append(out, r.Warnings...)
	}
	return out
}

// Result is the outcome of one pipeline run: the finished table plus its summary.
type Result struct {
	Rows    []dedupe.OutputRow
	Summary RunSummary
}
