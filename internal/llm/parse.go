package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseRecords converts a raw model response into zero or more records plus a
// list of parse warnings. Best effort by design: a malformed line degrades to
// "skip and continue", and arbitrary input never produces an error or a panic.
//
// Primary path: the response carries a JSON array (possibly wrapped in code
// fences or surrounded by prose), sanitized and validated against the record
// schema. Fallback path: line-oriented "key: value | comment" parsing.
func ParseRecords(resp RawResponse) ([]Record, []string) {
	var warnings []string

	body := strings.TrimSpace(resp.Text)
	if body == "" {
		return nil, nil
	}

	if jsonBody, ok := extractJSONArray(body); ok {
		if recs, warns, ok := parseJSONRecords(jsonBody, resp.ChunkIndex); ok {
			if len(recs) == 0 {
				warns = append(warns, fmt.Sprintf("chunk %d: no records parsed from non-empty response", resp.ChunkIndex))
			}
			return recs, warns
		}
		warnings = append(warnings, fmt.Sprintf("chunk %d: JSON block did not validate, falling back to line parsing", resp.ChunkIndex))
	}

	recs, lineWarns := parseLines(body, resp.ChunkIndex)
	warnings = append(warnings, lineWarns...)

	if len(recs) == 0 {
		// NoRecordsParsed: non-fatal, lets the caller inspect the raw output.
		warnings = append(warnings, fmt.Sprintf("chunk %d: no records parsed from non-empty response", resp.ChunkIndex))
	}
	return recs, warnings
}

// extractJSONArray strips markdown code fences and surrounding prose,
// returning the outermost [...] block when one exists.
func extractJSONArray(body string) (string, bool) {
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		if idx := strings.LastIndex(body, "```"); idx >= 0 {
			body = body[:idx]
		}
		body = strings.TrimSpace(body)
	}

	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return body[start : end+1], true
}

func parseJSONRecords(jsonBody string, chunkIndex int) ([]Record, []string, bool) {
	cleaned, notes, err := SanitizeRecords([]byte(jsonBody))
	if err != nil {
		return nil, nil, false
	}
	if err := ValidateJSONAgainstSchema(BuildRecordJSONSchema(), cleaned); err != nil {
		return nil, nil, false
	}

	var recs []Record
	if err := json.Unmarshal(cleaned, &recs); err != nil {
		return nil, nil, false
	}

	var warnings []string
	for _, n := range notes {
		warnings = append(warnings, fmt.Sprintf("chunk %d: %s", chunkIndex, n))
	}
	for i := range recs {
		recs[i].SourceChunk = chunkIndex
	}
	return recs, warnings, true
}

// parseLines is the degraded path for free-text output. Accepted shapes:
//
//	key: value | comment
//	key | value | comment
//	key: value
//
// Multiple records on one line may be separated by ";". Field labels tolerate
// inconsistent whitespace; non-conforming lines are skipped with a warning.
func parseLines(body string, chunkIndex int) ([]Record, []string) {
	var (
		recs     []Record
		warnings []string
	)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*• "))
		if line == "" || isProse(line) {
			continue
		}

		segments := []string{line}
		if strings.Contains(line, ";") && strings.Count(line, ":") > 1 {
			segments = strings.Split(line, ";")
		}

		for _, seg := range segments {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			rec, ok := parseSegment(seg)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("chunk %d: skipped malformed line: %s", chunkIndex, snippet(seg, 60)))
				continue
			}
			rec.SourceChunk = chunkIndex
			recs = append(recs, rec)
		}
	}
	return recs, warnings
}

func parseSegment(seg string) (Record, bool) {
	// Pipe-delimited triple first: "key | value | comment".
	if parts := strings.Split(seg, "|"); len(parts) >= 2 && !strings.Contains(parts[0], ":") {
		rec := Record{
			Key:   strings.TrimSpace(parts[0]),
			Value: strings.TrimSpace(parts[1]),
		}
		if len(parts) >= 3 {
			rec.Comments = strings.TrimSpace(strings.Join(parts[2:], " | "))
		}
		if rec.Key == "" {
			return Record{}, false
		}
		return rec, true
	}

	// "key: value" with an optional "| comment" tail.
	key, rest, found := strings.Cut(seg, ":")
	if !found {
		return Record{}, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Record{}, false
	}

	value, comment, _ := strings.Cut(rest, "|")
	return Record{
		Key:      key,
		Value:    strings.TrimSpace(value),
		Comments: strings.TrimSpace(comment),
	}, true
}

// isProse filters sentences the model sometimes wraps around its output.
func isProse(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range []string{"here is", "here are", "the following", "i have extracted", "note:"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
