package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/StarHydra/docstruct/constants"
	"github.com/StarHydra/docstruct/internal/chunker"
	"github.com/StarHydra/docstruct/internal/common"
	"github.com/StarHydra/docstruct/internal/dedupe"
	"github.com/StarHydra/docstruct/internal/llm"
)

// Config holds pipeline behavior knobs.
type Config struct {
	TokenBudget            int
	ChunkOverlap           int
	Concurrency            int // chunk workers; default 1 to respect free-tier quotas
	MaxConsecutiveFailures int // run-level abort threshold
}

// Processor coordinates the full run for one document: chunk planning, prompt
// construction, remote extraction, parsing, deduplication, and sequencing.
// Stateless across runs; each invocation covers a single document.
type Processor struct {
	logger    *slog.Logger
	cfg       Config
	completer llm.Completer
}

func NewProcessor(logger *slog.Logger, cfg Config, completer llm.Completer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = constants.MaxConsecutiveFailures
	}
	return &Processor{logger: logger, cfg: cfg, completer: completer}
}

// Run executes the pipeline over raw document text and returns the finished
// table plus its summary. Chunk failures degrade to skipped chunks; only
// authentication rejection (or an unusable document) aborts the whole run.
// With concurrency > 1, responses may arrive out of order; they are buffered
// and applied to the canonical set in chunk-index order so serial numbers
// stay stable.
func (p *Processor) Run(ctx context.Context, text string) (*Result, error) {
	runID := uuid.New().String()
	start := time.Now()

	planner, err := chunker.NewPlanner(p.cfg.TokenBudget, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	chunks, overflows, err := planner.Plan(text)
	if err != nil {
		return nil, common.WrapError(err, "plan chunks")
	}

	p.logger.Info("run.start",
		"run_id", runID,
		"chunks", len(chunks),
		"overflows", len(overflows),
		"concurrency", p.cfg.Concurrency,
	)

	responses, errs, fatalErr := p.dispatch(ctx, runID, chunks)
	if fatalErr != nil {
		p.logger.Error("run.aborted", "run_id", runID, "error", fatalErr,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.WrapError(fatalErr, "run aborted")
	}

	// Apply in chunk-index order, not arrival order: "first seen" must follow
	// document order for stable serial numbering.
	set := dedupe.NewSet()
	summary := RunSummary{RunID: runID, Chunks: len(chunks)}
	for _, o := range overflows {
		summary.Overflows = append(summary.Overflows, o.Error())
	}

	for i := range chunks {
		rep := ChunkReport{Index: i}
		switch {
		case responses[i] != nil:
			records, warnings := llm.ParseRecords(*responses[i])
			for _, rec := range records {
				set.Add(rec)
			}
			rep.Records = len(records)
			rep.Warnings = warnings
			if len(records) == 0 {
				rep.Status = constants.ChunkStatusNoRecords
			} else {
				rep.Status = constants.ChunkStatusOK
			}
			summary.Succeeded++
		case errs[i] != nil && !errors.Is(errs[i], context.Canceled):
			ee := &ExtractionFailedError{ChunkIndex: i, Err: errs[i]}
			rep.Status = constants.ChunkStatusFailed
			rep.Error = ee.Error()
			summary.Failed++
		default:
			rep.Status = constants.ChunkStatusSkipped
			summary.Skipped++
		}
		summary.Reports = append(summary.Reports, rep)
	}

	rows := set.Rows()
	summary.Records = set.Total()
	summary.Rows = len(rows)
	summary.Aborted = summary.Skipped > 0
	summary.ElapsedMS = time.Since(start).Milliseconds()

	p.logger.Info("run.ok",
		"run_id", runID,
		"chunks", summary.Chunks,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"records", summary.Records,
		"rows", summary.Rows,
		"elapsed_ms", summary.ElapsedMS,
	)
	return &Result{Rows: rows, Summary: summary}, nil
}

// dispatch fans chunks out to a bounded worker pool. Each worker retries and
// backs off independently inside the completer. Once the consecutive-failure
// threshold trips, remaining dispatch stops but collected responses are kept;
// an auth rejection cancels everything and is returned as fatal.
func (p *Processor) dispatch(ctx context.Context, runID string, chunks []chunker.TextChunk) ([]*llm.RawResponse, []error, error) {
	responses := make([]*llm.RawResponse, len(chunks))
	errs := make([]error, len(chunks))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	system := llm.BuildSystemPrompt()
	jobs := make(chan chunker.TextChunk)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		consecutive int
		fatalErr    error
	)

	for w := 0; w < p.cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for c := range jobs {
				resp, err := p.completer.Complete(runCtx, llm.Request{
					ChunkIndex: c.Index,
					System:     system,
					User:       llm.BuildUserPrompt(c.Text),
				})
				if err != nil {
					errs[c.Index] = err
					mu.Lock()
					if errors.Is(err, common.ErrAuth) {
						if fatalErr == nil {
							fatalErr = err
						}
						cancel()
					} else if !errors.Is(err, context.Canceled) {
						consecutive++
						if consecutive >= p.cfg.MaxConsecutiveFailures {
							p.logger.Warn("run.failure_threshold",
								"run_id", runID, "consecutive", consecutive)
							cancel()
						}
					}
					mu.Unlock()
					continue
				}
				mu.Lock()
				consecutive = 0
				mu.Unlock()
				r := resp
				responses[c.Index] = &r
			}
		}(w + 1)
	}

	for _, c := range chunks {
		select {
		case <-runCtx.Done():
		case jobs <- c:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return responses, errs, fatalErr
}
