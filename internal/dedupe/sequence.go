package dedupe

import (
	"strings"
	"time"
)

// CommentSeparator joins a record's comment set into the output cell.
const CommentSeparator = "; "

// conflictNote marks rows holding a differing value for an already-seen key.
const conflictNote = "conflicting value for duplicate key"

// OutputRow is the final, immutable table row handed to the exporter.
type OutputRow struct {
	SrNo     int
	Key      string
	Value    string
	Comments string
}

// Rows assigns stable serial numbers in first-seen order (chunk index, then
// in-chunk order), flattens each comment set into a single joined string, and
// returns the finished table. No further mutation happens after this point.
func (s *Set) Rows() []OutputRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]OutputRow, 0, len(s.order))
	for i, cr := range s.order {
		comments := strings.Join(cr.Comments, CommentSeparator)
		if cr.Conflict {
			if comments == "" {
				comments = conflictNote
			} else {
				comments = conflictNote + CommentSeparator + comments
			}
		}
		rows = append(rows, OutputRow{
			SrNo:     i + 1,
			Key:      cr.Key,
			Value:    cr.Value,
			Comments: comments,
		})
	}
	return rows
}

// dateFormats are the value shapes compared (and exported) as real dates.
// Month-first slashes, since that is how the model echoes US-style sources.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2-January-2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// ParseDate reports whether s is a recognized date form, returning the parsed
// date (midnight UTC) when it is.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
