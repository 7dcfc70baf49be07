package chunker

import (
	"fmt"
	"strings"

	"github.com/StarHydra/docstruct/constants"
	"github.com/StarHydra/docstruct/internal/common"
)

// TextChunk is a bounded-size slice of document text sent to the model in one request.
type TextChunk struct {
	Index           int
	Text            string
	EstimatedTokens int
}

// ChunkOverflowError reports a single semantic unit (a table row) that
// exceeds the token budget even alone. The unit is dropped; the run continues.
type ChunkOverflowError struct {
	Unit            string // leading snippet of the offending row
	EstimatedTokens int
	Budget          int
}

func (e *ChunkOverflowError) Error() string {
	return fmt.Sprintf("chunk overflow: unit of ~%d tokens exceeds budget %d: %q",
		e.EstimatedTokens, e.Budget, e.Unit)
}

// Planner splits raw document text into ordered, disjoint chunks, each within
// the token budget. Paragraph boundaries are preferred, then line boundaries,
// then whitespace within a slack window, then hard character splits.
type Planner struct {
	budget  int
	overlap int
}

// NewPlanner validates the budget against the hard ceiling. overlap is the
// number of tokens of trailing context carried into the next chunk (0 = disjoint).
func NewPlanner(budget, overlap int) (*Planner, error) {
	if budget <= 0 {
		budget = constants.DefaultTokenBudget
	}
	if budget > constants.MaxTokenBudget {
		return nil, common.NewAppError("CHUNK_CONFIG", fmt.Sprintf("token budget %d exceeds ceiling %d", budget, constants.MaxTokenBudget), common.ErrInvalidInput)
	}
	if overlap < 0 {
		overlap = 0
	}
	// The overlap plus its joining newline must leave at least one token of
	// budget for new content, or planning cannot make progress.
	if overlap > 0 && overlap >= budget-1 {
		return nil, common.NewAppError("CHUNK_CONFIG", "chunk overlap leaves no room for chunk content", common.ErrInvalidInput)
	}
	return &Planner{budget: budget, overlap: overlap}, nil
}

// EstimateTokens approximates tokens as ceil(utf8_bytes / 4).
func EstimateTokens(s string) int {
	return (len(s) + constants.BytesPerToken - 1) / constants.BytesPerToken
}

// Plan splits text into chunks. Oversized semantic units are returned as
// overflow reports, not chunks; the rest of the document is still planned.
func (p *Planner) Plan(text string) ([]TextChunk, []*ChunkOverflowError, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil, common.NewAppError("CHUNK_EMPTY", "document text is empty", common.ErrInvalidInput)
	}

	// Effective budget leaves room for the overlap carried from the previous
	// chunk, plus one token for the joining newline.
	budget := p.budget - p.overlap
	if p.overlap > 0 {
		budget--
	}

	var (
		chunks    []TextChunk
		overflows []*ChunkOverflowError
		cur       strings.Builder
		curTokens int
	)

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		body := strings.TrimSpace(cur.String())
		cur.Reset()
		curTokens = 0
		if body == "" {
			return
		}
		if p.overlap > 0 && len(chunks) > 0 {
			prev := chunks[len(chunks)-1].Text
			body = tailTokens(prev, p.overlap) + "\n" + body
		}
		chunks = append(chunks, TextChunk{
			Index:           len(chunks),
			Text:            body,
			EstimatedTokens: EstimateTokens(body),
		})
	}

	appendUnit := func(unit string, tokens int) {
		// +1 covers the joining newline.
		if curTokens > 0 && curTokens+tokens+1 > budget {
			flush()
		}
		if curTokens > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(unit)
		curTokens += tokens + 1
	}

	for _, para := range splitParagraphs(text) {
		tokens := EstimateTokens(para)
		if tokens <= budget {
			appendUnit(para, tokens)
			continue
		}

		// Paragraph too large alone: fall back to line boundaries.
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimRight(line, " \t")
			if line == "" {
				continue
			}
			lt := EstimateTokens(line)
			if lt <= budget {
				appendUnit(line, lt)
				continue
			}
			if isTableRow(line) {
				// Splitting a table row would sever key/value pairs.
				overflows = append(overflows, &ChunkOverflowError{
					Unit:            snippet(line, 80),
					EstimatedTokens: lt,
					Budget:          p.budget,
				})
				continue
			}
			// Boundary-free prose: whitespace split within the slack
			// window, hard character split as a last resort.
			for _, piece := range splitLongLine(line, budget) {
				appendUnit(piece, EstimateTokens(piece))
			}
		}
	}
	flush()

	if len(chunks) == 0 && len(overflows) > 0 {
		return nil, overflows, common.NewAppError("CHUNK_OVERFLOW", "no unit of the document fits the token budget", common.ErrInvalidInput)
	}
	return chunks, overflows, nil
}

// splitParagraphs splits on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isTableRow treats delimited lines as indivisible semantic units.
func isTableRow(line string) bool {
	return strings.Contains(line, "|") || strings.Contains(line, "\t")
}

// splitLongLine cuts a line into budget-sized pieces, preferring the last
// whitespace inside a slack window (the trailing 20% of the byte budget).
func splitLongLine(line string, budget int) []string {
	maxBytes := budget * constants.BytesPerToken
	if maxBytes < 1 {
		// A cut width of zero would never consume input.
		maxBytes = constants.BytesPerToken
	}
	slack := maxBytes / 5
	var pieces []string
	for len(line) > maxBytes {
		cut := maxBytes
		if idx := strings.LastIndexAny(line[:maxBytes], " \t"); idx >= maxBytes-slack {
			cut = idx
		}
		pieces = append(pieces, strings.TrimSpace(line[:cut]))
		line = strings.TrimSpace(line[cut:])
	}
	if line != "" {
		pieces = append(pieces, line)
	}
	return pieces
}

// tailTokens returns roughly the last n tokens of s, cut at a whitespace boundary.
func tailTokens(s string, n int) string {
	maxBytes := n * constants.BytesPerToken
	if len(s) <= maxBytes {
		return s
	}
	tail := s[len(s)-maxBytes:]
	if idx := strings.IndexAny(tail, " \t\n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
