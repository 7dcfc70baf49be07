package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawResp(chunk int, text string) RawResponse {
	return RawResponse{ChunkIndex: chunk, Text: text, ReceivedAt: time.Now().UTC()}
}

func TestParseRecords_JSONArray(t *testing.T) {
	body := `[
		{"key": "First Name", "value": "Jane", "comments": "born in Jaipur"},
		{"key": "Current Salary", "value": 350000, "comments": ""}
	]`

	recs, warnings := ParseRecords(rawResp(2, body))
	require.Len(t, recs, 2)

	assert.Equal(t, "First Name", recs[0].Key)
	assert.Equal(t, "Jane", recs[0].Value)
	assert.Equal(t, "born in Jaipur", recs[0].Comments)
	assert.Equal(t, 2, recs[0].SourceChunk)

	// Numeric value coerced to string, with a sanitation note.
	assert.Equal(t, "350000", recs[1].Value)
	assert.NotEmpty(t, warnings)
}

func TestParseRecords_CodeFences(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "json_fence", body: "```json\n[{\"key\": \"City\", \"value\": \"Jaipur\"}]\n```"},
		{name: "bare_fence", body: "```\n[{\"key\": \"City\", \"value\": \"Jaipur\"}]\n```"},
		{name: "prose_around", body: "Here is the extracted data:\n[{\"key\": \"City\", \"value\": \"Jaipur\"}]\nLet me know if you need more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, _ := ParseRecords(rawResp(0, tt.body))
			require.Len(t, recs, 1)
			assert.Equal(t, "City", recs[0].Key)
			assert.Equal(t, "Jaipur", recs[0].Value)
		})
	}
}

func TestParseRecords_InconsistentLabels(t *testing.T) {
	body := `[{" KEY ": "Age", "Value": "35 years", "Comment": "35 years old at hire"}]`

	recs, _ := ParseRecords(rawResp(0, body))
	require.Len(t, recs, 1)
	assert.Equal(t, "Age", recs[0].Key)
	assert.Equal(t, "35 years", recs[0].Value)
	assert.Equal(t, "35 years old at hire", recs[0].Comments)
}

func TestParseRecords_LineFallback(t *testing.T) {
	body := "Invoice Date: 2024-01-05 | paid on time\nTotal Amount: 350\nnot a record at all"

	recs, warnings := ParseRecords(rawResp(1, body))
	require.Len(t, recs, 2)
	assert.Equal(t, "Invoice Date", recs[0].Key)
	assert.Equal(t, "2024-01-05", recs[0].Value)
	assert.Equal(t, "paid on time", recs[0].Comments)
	assert.Equal(t, "Total Amount", recs[1].Key)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "malformed")
}

// One well-formed line plus one malformed line: exactly one record and one
// warning, never a panic.
func TestParseRecords_Resilience(t *testing.T) {
	body := "Invoice Date: 2024-01-05\n%%%garbage without any delimiter%%%"

	recs, warnings := ParseRecords(rawResp(0, body))
	require.Len(t, recs, 1)
	assert.Equal(t, "Invoice Date", recs[0].Key)
	require.Len(t, warnings, 1)
}

func TestParseRecords_PipeTriples(t *testing.T) {
	body := "First Name | Jane | from the header\nLast Name | Doe | "

	recs, _ := ParseRecords(rawResp(0, body))
	require.Len(t, recs, 2)
	assert.Equal(t, "First Name", recs[0].Key)
	assert.Equal(t, "Jane", recs[0].Value)
	assert.Equal(t, "from the header", recs[0].Comments)
	assert.Equal(t, "Doe", recs[1].Value)
}

func TestParseRecords_NoRecordsParsed(t *testing.T) {
	recs, warnings := ParseRecords(rawResp(3, "nothing structured here at all"))
	assert.Empty(t, recs)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "no records parsed")
}

func TestParseRecords_EmptyBody(t *testing.T) {
	recs, warnings := ParseRecords(rawResp(0, "   \n "))
	assert.Empty(t, recs)
	assert.Empty(t, warnings)
}

func TestParseRecords_NeverPanics(t *testing.T) {
	inputs := []string{
		"[",
		"]",
		"[{]}",
		"```json\n```",
		strings.Repeat("|", 500),
		"[null, 42, \"str\"]",
		`[{"key": null}, {"value": "orphan"}]`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			ParseRecords(rawResp(0, in))
		})
	}
}

func TestSanitizeRecords(t *testing.T) {
	doc := `[{"key": "A", "value": 3.50, "comments": null}, {"note": "no key"}, "junk"]`

	cleaned, notes, err := SanitizeRecords([]byte(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, notes)

	require.NoError(t, ValidateJSONAgainstSchema(BuildRecordJSONSchema(), cleaned))
	assert.Contains(t, string(cleaned), `"3.50"`)
	assert.NotContains(t, string(cleaned), "junk")
}
