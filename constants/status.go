package constants

// ChunkStatus is the terminal status of one chunk within a run summary.
type ChunkStatus string

// Stable values (reported verbatim in the run summary).
const (
	ChunkStatusOK        ChunkStatus = "OK"         // records extracted and merged
	ChunkStatusNoRecords ChunkStatus = "NO_RECORDS" // non-empty response, nothing parseable
	ChunkStatusFailed    ChunkStatus = "FAILED"     // remote call failed after retries
	ChunkStatusSkipped   ChunkStatus = "SKIPPED"    // never dispatched (run aborted early)
)
