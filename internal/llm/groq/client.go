package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/StarHydra/docstruct/internal/common"
	"github.com/StarHydra/docstruct/internal/llm"
)

// Complete implements llm.Completer against /chat/completions with bounded
// retry and exponential backoff. Retry state (attempt count, elapsed time) is
// local to this call, so concurrent chunk workers never share mutable state.
// 401/403 fail fast with common.ErrAuth; 429, 5xx, and network errors retry.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.RawResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"chunk", req.ChunkIndex,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"user_len", len(req.User),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	backoff := c.cfg.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoff
			if c.cfg.MaxElapsed > 0 {
				// Check the time ceiling before sleeping, and never sleep
				// past it.
				remaining := c.cfg.MaxElapsed - time.Since(start)
				if remaining <= 0 {
					lastErr = fmt.Errorf("retry time budget exhausted after %s: %w", time.Since(start).Round(time.Millisecond), lastErr)
					break
				}
				if wait > remaining {
					wait = remaining
				}
			}
			c.log.Warn("llm.complete.retry",
				"req_id", rid, "chunk", req.ChunkIndex,
				"attempt", attempt, "backoff_ms", wait.Milliseconds(),
			)
			select {
			case <-ctx.Done():
				return llm.RawResponse{}, ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}

		raw, status, err := c.post(ctx, endpoint, body, rid, attempt)
		if err == nil {
			content, derr := decodeContent(raw)
			if derr != nil {
				c.log.Error("llm.complete.decode_error",
					"req_id", rid, "chunk", req.ChunkIndex, "error", derr,
					"raw_bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds(),
				)
				return llm.RawResponse{}, derr
			}
			c.log.Info("llm.complete.ok",
				"req_id", rid, "chunk", req.ChunkIndex,
				"attempt", attempt, "content_len", len(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.RawResponse{
				ChunkIndex: req.ChunkIndex,
				Text:       content,
				ReceivedAt: time.Now().UTC(),
			}, nil
		}

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			c.log.Error("llm.complete.auth_rejected",
				"req_id", rid, "chunk", req.ChunkIndex, "status", status,
			)
			return llm.RawResponse{}, common.NewAppError("AUTH_ERROR", "credential rejected by provider", common.ErrAuth)
		}
		if !retryable(status) {
			c.log.Error("llm.complete.rejected",
				"req_id", rid, "chunk", req.ChunkIndex, "status", status, "error", err,
			)
			return llm.RawResponse{}, err
		}
		lastErr = err
	}

	c.log.Error("llm.complete.exhausted",
		"req_id", rid, "chunk", req.ChunkIndex,
		"attempts", c.cfg.MaxAttempts, "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.RawResponse{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

// retryable: network errors (status 0), rate limits, and server errors.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) post(ctx context.Context, url string, body map[string]any, rid string, attempt int) ([]byte, int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("llm.http.request",
		"req_id", rid, "attempt", attempt, "content_length", len(b),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("llm.http.send_error", "req_id", rid, "attempt", attempt, "error", err)
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("llm.http.response_body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.log.Info("llm.http.response",
		"req_id", rid, "attempt", attempt,
		"status", resp.StatusCode, "bytes", len(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, resp.StatusCode, fmt.Errorf("provider status %d: %s", resp.StatusCode, snippet(raw, 200))
	}
	return raw, resp.StatusCode, nil
}

func decodeContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func snippet(b []byte, n int) string {
	s := string(b)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
