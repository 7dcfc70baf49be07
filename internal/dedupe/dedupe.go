package dedupe

import (
	"strings"
	"sync"

	"github.com/StarHydra/docstruct/internal/llm"
)

// CanonicalRecord is the deduplicated, merged representation of all
// extractions sharing a normalized key. Never deleted, only merged.
type CanonicalRecord struct {
	NormalizedKey  string
	Key            string // first-seen display form
	Value          string
	Comments       []string // first-seen order, redundancy-free
	FirstSeenChunk int
	Conflict       bool // secondary record holding a differing value for the same key
}

// Set folds extracted records into the canonical, duplicate-free collection.
// Insertions are serialized; callers must apply records in chunk-index order
// so "first seen" stays stable under concurrent chunk processing.
type Set struct {
	mu    sync.Mutex
	order []*CanonicalRecord
	byKey map[string][]*CanonicalRecord // primary first, then conflict variants
	total int
}

func NewSet() *Set {
	return &Set{byKey: make(map[string][]*CanonicalRecord)}
}

// Add merges one extracted record. Idempotent: folding the same record twice
// yields the same canonical set as folding it once.
func (s *Set) Add(rec llm.Record) {
	key := NormalizeKey(rec.Key)
	if key == "" {
		return
	}
	value := normalizeValue(rec.Value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++

	variants := s.byKey[key]
	for _, v := range variants {
		if valuesEqual(v.Value, value) {
			// Duplicate value: discard it, merge the comment.
			v.Comments = mergeComment(v.Comments, rec.Comments)
			return
		}
	}

	cr := &CanonicalRecord{
		NormalizedKey:  key,
		Key:            strings.TrimSpace(rec.Key),
		Value:          value,
		FirstSeenChunk: rec.SourceChunk,
		Conflict:       len(variants) > 0,
	}
	cr.Comments = mergeComment(nil, rec.Comments)
	s.byKey[key] = append(variants, cr)
	s.order = append(s.order, cr)
}

// Len returns the canonical record count (conflict variants included).
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Total returns how many extracted records have been folded in.
func (s *Set) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// NormalizeKey lowercases, trims, collapses internal whitespace, and strips
// trailing punctuation.
func NormalizeKey(key string) string {
	k := strings.Join(strings.Fields(strings.ToLower(key)), " ")
	return strings.TrimRight(k, ".,:;!?")
}

func normalizeValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// valuesEqual compares normalized values; recognized date forms compare by
// parsed date, not string equality, so "2024-01-05" matches "01/05/2024".
func valuesEqual(a, b string) bool {
	if a == b {
		return true
	}
	da, aOK := ParseDate(a)
	db, bOK := ParseDate(b)
	return aOK && bOK && da.Equal(db)
}

// mergeComment applies the redundancy rule: after whitespace normalization
// and case folding, if one comment contains another only the longer survives,
// keeping the first-seen position. O(n) per insertion; fine at the tens to
// low hundreds of records a document yields.
func mergeComment(list []string, comment string) []string {
	c := normalizeValue(comment)
	if c == "" {
		return list
	}
	norm := strings.ToLower(c)

	var kept []string
	placed := false
	for _, e := range list {
		ne := strings.ToLower(normalizeValue(e))
		if strings.Contains(ne, norm) {
			// Subsumed by an existing comment.
			return list
		}
		if strings.Contains(norm, ne) {
			// The new comment is the more informative one.
			if !placed {
				kept = append(kept, c)
				placed = true
			}
			continue
		}
		kept = append(kept, e)
	}
	if !placed {
		kept = append(kept, c)
	}
	return kept
}
