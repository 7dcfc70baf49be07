package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StarHydra/docstruct/constants"
	"github.com/StarHydra/docstruct/internal/common"
	"github.com/StarHydra/docstruct/internal/llm"
)

type fakeCompleter struct {
	fn func(req llm.Request) (llm.RawResponse, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (llm.RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.RawResponse{}, err
	}
	resp, err := f.fn(req)
	resp.ChunkIndex = req.ChunkIndex
	resp.ReceivedAt = time.Now().UTC()
	return resp, err
}

// Two chunks report the same key with the same date in different formats:
// a single canonical row with srNo 1 and merged comments.
func TestRun_EndToEndDedup(t *testing.T) {
	text := "Invoice Date: 2024-01-05 found on page one\n\nInvoice Date: 01/05/2024 shown on page two"

	completer := &fakeCompleter{fn: func(req llm.Request) (llm.RawResponse, error) {
		switch {
		case strings.Contains(req.User, "page one"):
			return llm.RawResponse{Text: `[{"key": "Invoice Date", "value": "2024-01-05", "comments": "from page one"}]`}, nil
		case strings.Contains(req.User, "page two"):
			return llm.RawResponse{Text: `[{"key": "invoice date", "value": "01/05/2024", "comments": "from page two"}]`}, nil
		default:
			return llm.RawResponse{}, fmt.Errorf("unexpected prompt: %s", req.User)
		}
	}}

	p := NewProcessor(nil, Config{TokenBudget: 12}, completer)
	res, err := p.Run(context.Background(), text)
	require.NoError(t, err)

	require.Equal(t, 2, res.Summary.Chunks, "paragraphs must land in separate chunks")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.Rows[0].SrNo)
	assert.Equal(t, "Invoice Date", res.Rows[0].Key)
	assert.Equal(t, "2024-01-05", res.Rows[0].Value)
	assert.Equal(t, "from page one; from page two", res.Rows[0].Comments)
	assert.Equal(t, 2, res.Summary.Records)
	assert.Equal(t, 1, res.Summary.Rows)
}

// Later chunks answer faster than earlier ones; serial numbers must still
// follow chunk order, not arrival order.
func TestRun_OrderPreservedUnderConcurrency(t *testing.T) {
	text := "field alpha\n\nfield beta\n\nfield gamma"

	completer := &fakeCompleter{fn: func(req llm.Request) (llm.RawResponse, error) {
		for i, marker := range []string{"alpha", "beta", "gamma"} {
			if strings.Contains(req.User, marker) {
				time.Sleep(time.Duration(2-i) * 20 * time.Millisecond)
				return llm.RawResponse{Text: fmt.Sprintf(`[{"key": "%s", "value": "%d"}]`, marker, i)}, nil
			}
		}
		return llm.RawResponse{}, fmt.Errorf("unexpected prompt")
	}}

	p := NewProcessor(nil, Config{TokenBudget: 4, Concurrency: 3}, completer)
	res, err := p.Run(context.Background(), text)
	require.NoError(t, err)

	require.Equal(t, 3, res.Summary.Chunks)
	require.Len(t, res.Rows, 3)
	for i, want := range []string{"alpha", "beta", "gamma"} {
		assert.Equal(t, i+1, res.Rows[i].SrNo)
		assert.Equal(t, want, res.Rows[i].Key)
	}
}

func TestRun_ChunkFailureIsLocal(t *testing.T) {
	text := "field alpha\n\nfield beta\n\nfield gamma"

	completer := &fakeCompleter{fn: func(req llm.Request) (llm.RawResponse, error) {
		if strings.Contains(req.User, "beta") {
			return llm.RawResponse{}, fmt.Errorf("retries exhausted: provider status 429")
		}
		for _, marker := range []string{"alpha", "gamma"} {
			if strings.Contains(req.User, marker) {
				return llm.RawResponse{Text: fmt.Sprintf(`[{"key": "%s", "value": "x"}]`, marker)}, nil
			}
		}
		return llm.RawResponse{}, fmt.Errorf("unexpected prompt")
	}}

	p := NewProcessor(nil, Config{TokenBudget: 4}, completer)
	res, err := p.Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Succeeded)
	assert.Equal(t, 1, res.Summary.Failed)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "alpha", res.Rows[0].Key)
	assert.Equal(t, "gamma", res.Rows[1].Key)

	failed := res.Summary.Reports[1]
	assert.Equal(t, constants.ChunkStatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "extraction failed for chunk 1")
}

// Three consecutive failures stop remaining dispatch, but records already
// merged are still sequenced and returned.
func TestRun_ConsecutiveFailuresAbortDispatch(t *testing.T) {
	text := "field one\n\nfield two\n\nfield three\n\nfield four\n\nfield five"

	var calls int
	completer := &fakeCompleter{fn: func(req llm.Request) (llm.RawResponse, error) {
		calls++
		if strings.Contains(req.User, "one") {
			return llm.RawResponse{Text: `[{"key": "first", "value": "1"}]`}, nil
		}
		return llm.RawResponse{}, fmt.Errorf("retries exhausted")
	}}

	p := NewProcessor(nil, Config{TokenBudget: 4, Concurrency: 1}, completer)
	res, err := p.Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.Equal(t, 3, res.Summary.Failed)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.True(t, res.Summary.Aborted)
	assert.Equal(t, 4, calls, "fifth chunk must never be dispatched")

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "first", res.Rows[0].Key)
}

func TestRun_AuthErrorAbortsRun(t *testing.T) {
	text := "field alpha\n\nfield beta"

	completer := &fakeCompleter{fn: func(llm.Request) (llm.RawResponse, error) {
		return llm.RawResponse{}, common.NewAppError("AUTH_ERROR", "credential rejected by provider", common.ErrAuth)
	}}

	p := NewProcessor(nil, Config{TokenBudget: 4}, completer)
	_, err := p.Run(context.Background(), text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrAuth))
}

func TestRun_NoRecordsIsWarningNotFailure(t *testing.T) {
	completer := &fakeCompleter{fn: func(llm.Request) (llm.RawResponse, error) {
		return llm.RawResponse{Text: "I could not find anything structured in this text."}, nil
	}}

	p := NewProcessor(nil, Config{TokenBudget: 100}, completer)
	res, err := p.Run(context.Background(), "some document text without extractable fields")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.Zero(t, res.Summary.Failed)
	assert.Empty(t, res.Rows)
	require.Len(t, res.Summary.Reports, 1)
	assert.Equal(t, constants.ChunkStatusNoRecords, res.Summary.Reports[0].Status)
	assert.NotEmpty(t, res.Summary.Warnings())
}

func TestRun_EmptyDocument(t *testing.T) {
	p := NewProcessor(nil, Config{}, &fakeCompleter{fn: func(llm.Request) (llm.RawResponse, error) {
		return llm.RawResponse{}, nil
	}})
	_, err := p.Run(context.Background(), "   ")
	assert.Error(t, err)
}
