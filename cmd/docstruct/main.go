package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/StarHydra/docstruct/internal/common"
	"github.com/StarHydra/docstruct/internal/core"
	"github.com/StarHydra/docstruct/internal/export"
	"github.com/StarHydra/docstruct/internal/extractor"
	"github.com/StarHydra/docstruct/internal/llm/groq"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		in          = flag.String("in", "", "input document path, .pdf or .txt (required)")
		out         = flag.String("out", "", "output XLSX file path (optional, defaults beside the input)")
		budget      = flag.Int("budget", 0, "per-chunk token budget (overrides TOKEN_BUDGET)")
		overlap     = flag.Int("overlap", -1, "token overlap carried between chunks (overrides CHUNK_OVERLAP)")
		concurrency = flag.Int("concurrency", 0, "parallel chunk workers (overrides CONCURRENCY)")
		retries     = flag.Int("retries", 0, "attempts per chunk request (overrides MAX_RETRIES)")
		model       = flag.String("model", "", "model name (overrides GROQ_MODEL)")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	// Validate required flags
	if *in == "" {
		printError("Error: --in is required\n")
		os.Exit(1)
	}

	// If output file not specified, write next to the input
	if *out == "" {
		base := strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
		*out = filepath.Join(filepath.Dir(*in), base+".xlsx")
	}

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Load configuration and apply flag overrides
	cfg := common.LoadConfig()
	if *budget > 0 {
		cfg.Pipeline.TokenBudget = *budget
	}
	if *overlap >= 0 {
		cfg.Pipeline.ChunkOverlap = *overlap
	}
	if *concurrency > 0 {
		cfg.Pipeline.Concurrency = *concurrency
	}
	if *retries > 0 {
		cfg.LLM.MaxAttempts = *retries
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	text, err := extractor.ExtractFile(*in, logger)
	if err != nil {
		logger.Error("input extraction failed", "path", *in, "error", err)
		os.Exit(1)
	}

	client := groq.NewClient(groq.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
		BackoffBase: cfg.LLM.BackoffBase,
		MaxElapsed:  cfg.LLM.MaxElapsed,
	}, logger)

	processor := core.NewProcessor(logger, core.Config{
		TokenBudget:  cfg.Pipeline.TokenBudget,
		ChunkOverlap: cfg.Pipeline.ChunkOverlap,
		Concurrency:  cfg.Pipeline.Concurrency,
	}, client)

	result, err := processor.Run(ctx, text)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	exporter := export.NewService(logger)
	if err := exporter.WriteFile(*out, result.Rows); err != nil {
		logger.Error("export failed", "path", *out, "error", err)
		os.Exit(1)
	}

	s := result.Summary
	fmt.Printf("Processed %d chunks: %d ok, %d failed, %d skipped\n",
		s.Chunks, s.Succeeded, s.Failed, s.Skipped)
	fmt.Printf("Extracted %d records into %d rows -> %s\n", s.Records, s.Rows, *out)
	for _, o := range s.Overflows {
		printError("Warning: %s\n", o)
	}
	for _, w := range s.Warnings() {
		printError("Warning: %s\n", w)
	}
	if s.Aborted {
		printError("Warning: run aborted early; output is partial\n")
		os.Exit(2)
	}
}
