package domain

import "time"

// Proximity records how close a candidate sits to a label for its field.
type Proximity string

const (
	ProximityNone     Proximity = "none"
	ProximitySameLine Proximity = "same_line"
	ProximityNextLine Proximity = "next_line"
)

// Labeled reports whether any label anchored the candidate.
func (p Proximity) Labeled() bool {
	return p == ProximitySameLine || p == ProximityNextLine
}

// Source records which scanning pass produced a candidate.
type Source string

const (
	SourceLine      Source = "line"      // exact 12-digit run on one line
	SourceWindow    Source = "window"    // 12-digit window inside a longer run
	SourceTail      Source = "tail"      // right-most 12 digits of a labeled long run
	SourceJoined    Source = "joined"    // digits joined across consecutive lines
	SourceDate      Source = "date"      // explicit d/m/y shape
	SourceCompact   Source = "compact"   // unseparated DDMMYYYY
	SourceMRZ       Source = "mrz"       // machine-readable zone date pair
	SourceLabel     Source = "label"     // text anchored by a label
	SourceHeuristic Source = "heuristic" // most name-like line
)

// Candidate is a typed guess at a field value observed in one OCR attempt.
type Candidate struct {
	Kind  FieldKind
	Value string
	// Date is set for birth and expiry candidates.
	Date         time.Time
	Raw          string
	Line         int
	Column       int
	Attempt      int
	Confidence   float64
	Proximity    Proximity
	Source       Source
	ContextScore float64
}

// CandidateSet is an append-only multiset of candidates keyed by field kind.
// The zero value is ready to use. Candidates are never removed, so a set only
// grows as attempts are merged into it.
type CandidateSet struct {
	byKind map[FieldKind][]Candidate
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{byKind: make(map[FieldKind][]Candidate)}
}

// Add appends c to the set.
func (s *CandidateSet) Add(c Candidate) {
	if s.byKind == nil {
		s.byKind = make(map[FieldKind][]Candidate)
	}
	s.byKind[c.Kind] = append(s.byKind[c.Kind], c)
}

// Merge appends every candidate of other, preserving its order.
func (s *CandidateSet) Merge(other *CandidateSet) {
	if other == nil {
		return
	}
	for _, kind := range AllFields {
		for _, c := range other.byKind[kind] {
			s.Add(c)
		}
	}
}

// Of returns a copy of the candidates for kind in insertion order.
func (s *CandidateSet) Of(kind FieldKind) []Candidate {
	if s == nil || len(s.byKind[kind]) == 0 {
		return nil
	}
	out := make([]Candidate, len(s.byKind[kind]))
	copy(out, s.byKind[kind])
	return out
}

// Len counts candidates across all kinds.
func (s *CandidateSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, cs := range s.byKind {
		n += len(cs)
	}
	return n
}

// Count returns how many times c occurs in the set.
func (s *CandidateSet) Count(c Candidate) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, existing := range s.byKind[c.Kind] {
		if existing == c {
			n++
		}
	}
	return n
}

// Contains reports whether every candidate of other occurs in s at least as
// many times as in other.
func (s *CandidateSet) Contains(other *CandidateSet) bool {
	if other == nil {
		return true
	}
	for _, kind := range AllFields {
		for _, c := range other.byKind[kind] {
			if s.Count(c) < other.Count(c) {
				return false
			}
		}
	}
	return true
}

// Clone returns an independent copy.
func (s *CandidateSet) Clone() *CandidateSet {
	out := NewCandidateSet()
	out.Merge(s)
	return out
}
