// Package resolver picks one value per field from the candidates accumulated
// over a scan. Resolution is deterministic: the same candidate set and
// reference date always give the same fields.
package resolver

import (
	"cmp"
	"slices"
	"time"

	"docverify/internal/civilid"
	"docverify/internal/domain"
)

// Civil ID validity signals added to the scanner's context score.
const (
	centuryBonus      = 1.0
	derivableDOBBonus = 2.0
	plausibleDOBBonus = 1.0
	checksumBonus     = 7.0
	checksumPenalty   = -2.0
	confidenceWeight  = 2.0
)

// Base confidences per resolution path, scaled by OCR confidence.
const (
	confLabeledID      = 0.9
	confRankedID       = 0.75
	confUnchecksummed  = 0.35
	confSameLineDate   = 0.9
	confNextLineDate   = 0.8
	confDerivedDOB     = 0.85
	confPositional     = 0.5
	confMRZ            = 0.45
	confSameLineName   = 0.85
	confNextLineName   = 0.75
	confHeuristicName  = 0.45
	defaultMaxAgeYears = 120
)

// Resolver selects fields. The zero value is not usable; call New.
type Resolver struct {
	maxAge int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxAge bounds the age a labeled birth date may imply.
func WithMaxAge(years int) Option {
	return func(r *Resolver) {
		if years > 0 {
			r.maxAge = years
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{maxAge: defaultMaxAgeYears}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve chooses one ResolvedField per kind from set.
func (r *Resolver) Resolve(set *domain.CandidateSet, now time.Time) domain.ResolvedFields {
	fields := domain.EmptyFields()
	var idCandidate *domain.Candidate
	fields.CivilID, idCandidate = r.resolveCivilID(set.Of(domain.FieldCivilID), now)
	fields.BirthDate = r.resolveBirthDate(set.Of(domain.FieldBirthDate), fields.CivilID, now)
	fields.ExpiryDate = r.resolveExpiry(set.Of(domain.FieldExpiryDate), fields.BirthDate, idCandidate, set.Of(domain.FieldCivilID))
	fields.Name = r.resolveName(set.Of(domain.FieldName))
	return fields
}

// CivilIDScore combines a candidate's label context with checksum, format and
// OCR confidence signals.
func CivilIDScore(c domain.Candidate, now time.Time) float64 {
	score := c.ContextScore
	if civilid.ValidCentury(c.Value) {
		score += centuryBonus
	}
	if dob, ok := civilid.BirthDate(c.Value, now); ok {
		score += derivableDOBBonus
		if domain.AgeAt(dob, now) <= defaultMaxAgeYears {
			score += plausibleDOBBonus
		}
	}
	if civilid.ValidChecksum(c.Value) {
		score += checksumBonus
	} else {
		score += checksumPenalty
	}
	return score + confidenceWeight*c.Confidence
}

func (r *Resolver) resolveCivilID(cands []domain.Candidate, now time.Time) (domain.ResolvedField, *domain.Candidate) {
	type scored struct {
		c     domain.Candidate
		score float64
	}
	pool := make([]scored, 0, len(cands))
	for _, c := range cands {
		if civilid.ValidFormat(c.Value) {
			pool = append(pool, scored{c: c, score: CivilIDScore(c, now)})
		}
	}
	if len(pool) == 0 {
		return domain.Unresolved(domain.FieldCivilID), nil
	}
	slices.SortFunc(pool, func(a, b scored) int {
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		return compareOrder(a.c, b.c)
	})

	best := pool[0].c
	method, base := domain.MethodUnchecksummed, confUnchecksummed
	if civilid.ValidChecksum(best.Value) {
		method, base = domain.MethodChecksumRanked, confRankedID
		if best.Proximity.Labeled() {
			method, base = domain.MethodLabeledMatch, confLabeledID
		}
	}
	return domain.ResolvedField{
		Kind:       domain.FieldCivilID,
		Value:      best.Value,
		Present:    true,
		Confidence: scale(base, best.Confidence),
		Method:     method,
		Attempt:    best.Attempt,
	}, &best
}

func (r *Resolver) plausibleBirth(dob, now time.Time) bool {
	if dob.After(now) {
		return false
	}
	return domain.AgeAt(dob, now) <= r.maxAge
}

func (r *Resolver) resolveBirthDate(cands []domain.Candidate, id domain.ResolvedField, now time.Time) domain.ResolvedField {
	var labeled []domain.Candidate
	for _, c := range cands {
		if c.Proximity.Labeled() && r.plausibleBirth(c.Date, now) {
			labeled = append(labeled, c)
		}
	}
	if len(labeled) > 0 {
		slices.SortFunc(labeled, func(a, b domain.Candidate) int {
			if d := cmp.Compare(proximityRank(a.Proximity), proximityRank(b.Proximity)); d != 0 {
				return d
			}
			if d := cmp.Compare(sourceRank(a.Source), sourceRank(b.Source)); d != 0 {
				return d
			}
			return compareOrder(a, b)
		})
		best := labeled[0]
		base := confSameLineDate
		if best.Proximity == domain.ProximityNextLine {
			base = confNextLineDate
		}
		return dateField(domain.FieldBirthDate, best.Date, scale(base, best.Confidence), domain.MethodLabeledMatch, best.Attempt)
	}

	if id.Present {
		if dob, ok := civilid.BirthDate(id.Value, now); ok {
			return dateField(domain.FieldBirthDate, dob, confDerivedDOB*id.Confidence, domain.MethodDerivedFromID, id.Attempt)
		}
	}
	return domain.Unresolved(domain.FieldBirthDate)
}

func (r *Resolver) resolveExpiry(cands []domain.Candidate, dob domain.ResolvedField, id *domain.Candidate, ids []domain.Candidate) domain.ResolvedField {
	for _, tier := range []domain.Proximity{domain.ProximitySameLine, domain.ProximityNextLine} {
		var pool []domain.Candidate
		for _, c := range cands {
			if c.Proximity == tier && c.Source != domain.SourceMRZ {
				pool = append(pool, c)
			}
		}
		if best, ok := latestExpiry(pool, dob); ok {
			base := confSameLineDate
			if tier == domain.ProximityNextLine {
				base = confNextLineDate
			}
			return dateField(domain.FieldExpiryDate, best.Date, scale(base, best.Confidence), domain.MethodLabeledMatch, best.Attempt)
		}
	}

	if best, ok := positionalExpiry(cands, dob, id, ids); ok {
		return dateField(domain.FieldExpiryDate, best.Date, scale(confPositional, best.Confidence), domain.MethodFallbackPositional, best.Attempt)
	}

	var mrz []domain.Candidate
	for _, c := range cands {
		if c.Source == domain.SourceMRZ && (!dob.Present || c.Date.After(dob.Date)) {
			mrz = append(mrz, c)
		}
	}
	if len(mrz) > 0 {
		slices.SortFunc(mrz, compareOrder)
		best := mrz[0]
		return dateField(domain.FieldExpiryDate, best.Date, scale(confMRZ, best.Confidence), domain.MethodFallbackPositional, best.Attempt)
	}
	return domain.Unresolved(domain.FieldExpiryDate)
}

// latestExpiry prefers dates after the birth date, then dates other than the
// birth date, and takes the latest of the preferred group.
func latestExpiry(pool []domain.Candidate, dob domain.ResolvedField) (domain.Candidate, bool) {
	if len(pool) == 0 {
		return domain.Candidate{}, false
	}
	if dob.Present {
		var after, notSame []domain.Candidate
		for _, c := range pool {
			if c.Date.After(dob.Date) {
				after = append(after, c)
			}
			if !c.Date.Equal(dob.Date) {
				notSame = append(notSame, c)
			}
		}
		switch {
		case len(after) > 0:
			pool = after
		case len(notSame) > 0:
			pool = notSame
		}
	}
	return slices.MinFunc(pool, func(a, b domain.Candidate) int {
		if !a.Date.Equal(b.Date) {
			return b.Date.Compare(a.Date)
		}
		return compareOrder(a, b)
	}), true
}

// positionalExpiry walks each attempt's dates in reading order starting at the
// Civil ID line. With a known birth date it takes the first later date;
// otherwise the second distinct date after the ID block.
func positionalExpiry(cands []domain.Candidate, dob domain.ResolvedField, id *domain.Candidate, ids []domain.Candidate) (domain.Candidate, bool) {
	byAttempt := make(map[int][]domain.Candidate)
	for _, c := range cands {
		if c.Source == domain.SourceDate || c.Source == domain.SourceCompact {
			byAttempt[c.Attempt] = append(byAttempt[c.Attempt], c)
		}
	}
	attempts := make([]int, 0, len(byAttempt))
	for a := range byAttempt {
		attempts = append(attempts, a)
	}
	slices.Sort(attempts)

	for _, attempt := range attempts {
		dates := byAttempt[attempt]
		slices.SortFunc(dates, compareOrder)
		fromLine := idLine(attempt, id, ids)

		var seen []time.Time
		for _, c := range dates {
			if c.Line < fromLine {
				continue
			}
			if dob.Present {
				if c.Date.After(dob.Date) {
					return c, true
				}
				continue
			}
			if slices.ContainsFunc(seen, c.Date.Equal) {
				continue
			}
			seen = append(seen, c.Date)
			if len(seen) == 2 {
				return c, true
			}
		}
	}
	return domain.Candidate{}, false
}

// idLine finds where the resolved Civil ID sits in attempt, or -1 when the
// attempt did not see it.
func idLine(attempt int, id *domain.Candidate, ids []domain.Candidate) int {
	if id == nil {
		return -1
	}
	line := -1
	for _, c := range ids {
		if c.Attempt == attempt && c.Value == id.Value && (line < 0 || c.Line < line) {
			line = c.Line
		}
	}
	return line
}

func (r *Resolver) resolveName(cands []domain.Candidate) domain.ResolvedField {
	tiers := []struct {
		match  func(domain.Candidate) bool
		base   float64
		method domain.Method
	}{
		{
			match:  func(c domain.Candidate) bool { return c.Source == domain.SourceLabel && c.Proximity == domain.ProximitySameLine },
			base:   confSameLineName,
			method: domain.MethodLabeledMatch,
		},
		{
			match:  func(c domain.Candidate) bool { return c.Source == domain.SourceLabel && c.Proximity == domain.ProximityNextLine },
			base:   confNextLineName,
			method: domain.MethodLabeledMatch,
		},
		{
			match:  func(c domain.Candidate) bool { return c.Source == domain.SourceHeuristic },
			base:   confHeuristicName,
			method: domain.MethodHeuristic,
		},
	}
	for _, tier := range tiers {
		var pool []domain.Candidate
		for _, c := range cands {
			if tier.match(c) && c.Value != "" {
				pool = append(pool, c)
			}
		}
		if len(pool) == 0 {
			continue
		}
		best := slices.MinFunc(pool, func(a, b domain.Candidate) int {
			if a.ContextScore != b.ContextScore {
				return cmp.Compare(b.ContextScore, a.ContextScore)
			}
			return compareOrder(a, b)
		})
		return domain.ResolvedField{
			Kind:       domain.FieldName,
			Value:      best.Value,
			Present:    true,
			Confidence: scale(tier.base, best.Confidence),
			Method:     tier.method,
			Attempt:    best.Attempt,
		}
	}
	return domain.Unresolved(domain.FieldName)
}

// compareOrder orders candidates by provenance: earlier attempt, earlier line,
// earlier column, then value.
func compareOrder(a, b domain.Candidate) int {
	return cmp.Or(
		cmp.Compare(a.Attempt, b.Attempt),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.Value, b.Value),
		cmp.Compare(sourceRank(a.Source), sourceRank(b.Source)),
	)
}

func proximityRank(p domain.Proximity) int {
	switch p {
	case domain.ProximitySameLine:
		return 0
	case domain.ProximityNextLine:
		return 1
	}
	return 2
}

func sourceRank(s domain.Source) int {
	switch s {
	case domain.SourceLine, domain.SourceDate, domain.SourceLabel:
		return 0
	case domain.SourceTail, domain.SourceCompact:
		return 1
	case domain.SourceWindow, domain.SourceMRZ:
		return 2
	case domain.SourceJoined:
		return 3
	}
	return 4
}

func dateField(kind domain.FieldKind, date time.Time, conf float64, method domain.Method, attempt int) domain.ResolvedField {
	return domain.ResolvedField{
		Kind:       kind,
		Value:      domain.FormatDate(date),
		Date:       date,
		Present:    true,
		Confidence: conf,
		Method:     method,
		Attempt:    attempt,
	}
}

// scale folds OCR confidence into a base confidence.
func scale(base, ocr float64) float64 {
	ocr = min(max(ocr, 0), 1)
	return base * (0.6 + 0.4*ocr)
}
