package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SanitizeRecords normalizes a raw model JSON array so the overall document
// can still validate against the record schema: field labels are lowercased
// and trimmed, numeric values become strings, nulls are dropped, and elements
// without a usable key are removed. Returns the cleaned JSON plus notes about
// what was touched.
func SanitizeRecords(doc []byte) ([]byte, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var arr []any
	if err := dec.Decode(&arr); err != nil {
		return nil, nil, err
	}

	var notes []string
	cleaned := make([]map[string]any, 0, len(arr))

	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("element %d: not an object, dropped", i))
			continue
		}

		rec := make(map[string]any, 3)
		for k, v := range obj {
			name := strings.ToLower(strings.TrimSpace(k))
			switch name {
			case "comment":
				name = "comments"
			case "key", "value", "comments":
			default:
				notes = append(notes, fmt.Sprintf("element %d: unknown field %q dropped", i, k))
				continue
			}

			switch t := v.(type) {
			case nil:
				// never output null; omit instead
			case string:
				rec[name] = strings.TrimSpace(t)
			case json.Number:
				rec[name] = t.String()
				notes = append(notes, fmt.Sprintf("element %d: %s coerced to string", i, name))
			case bool:
				rec[name] = fmt.Sprintf("%t", t)
				notes = append(notes, fmt.Sprintf("element %d: %s coerced to string", i, name))
			default:
				notes = append(notes, fmt.Sprintf("element %d: %s has unsupported type, dropped", i, name))
			}
		}

		key, _ := rec["key"].(string)
		if key == "" {
			notes = append(notes, fmt.Sprintf("element %d: missing key, dropped", i))
			continue
		}
		cleaned = append(cleaned, rec)
	}

	b, err := json.Marshal(cleaned)
	if err != nil {
		return nil, nil, err
	}
	return b, notes, nil
}
