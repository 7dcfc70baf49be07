package llm

import "strings"

// BuildSystemPrompt composes the extraction instructions: dynamic key/value
// identification, date and salary conventions, verbatim comments, and the
// strict JSON-array output contract the parser validates against.
// Pure function: the prompt is identical on every call, which keeps retries safe.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert data extraction AI specializing in converting unstructured narratives into structured key-value pairs.",
		"Dynamically identify all factual elements and group them into logical key-value pairs. Keys should be concise and descriptive (e.g., \"First Name\", \"Date of Birth\", \"Current Salary\", \"Certifications 1\").",
		"For values, use exact original data where possible.",
		"Dates: output in YYYY-MM-DD format if mentioned (or infer from context like \"June 15, 2002\" -> \"2002-06-15\").",
		"Salaries: numeric value without commas or currency (e.g., \"350,000 INR\" -> 350000), with the currency as a separate key.",
		"Percentages/scores: keep as written (e.g., \"92.5%\" -> 92.5%); put any grading scale in the comments.",
		"Keep units in key or value if integral (e.g., \"35 years\" for age).",
		"For lists like certifications or skills, create sequential keys (e.g., \"Certifications 1\", \"Certifications 2\").",
		"For comments, pull relevant contextual sentences or phrases from the original text using exact wording. If a section is purely descriptive, use an empty value and put the full description in comments.",
		"Ensure 100% capture: no summarization, omission, or paraphrasing unless absolutely needed for a clean key-value pair.",
		"Do not introduce new information.",
		"Output ONLY a valid JSON array of objects in this exact format: [{\"key\": \"string\", \"value\": \"string or number as string\", \"comments\": \"string\"}].",
		"No markdown, no code fences, no prose before or after the array.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages one chunk's text. Pure function of its input:
// the same chunk always yields the same prompt.
func BuildUserPrompt(chunkText string) string {
	var b strings.Builder
	b.WriteString("Extract key-value pairs from the following text:\n\n")
	b.WriteString(chunkText)
	b.WriteString("\n\nReturn ONLY the JSON array.")
	return b.String()
}
