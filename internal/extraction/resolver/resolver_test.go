package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/domain"
	"docverify/internal/extraction/scanner"
)

var now = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func scan(attempt int, lines ...string) *domain.CandidateSet {
	tokens := make([]domain.RawToken, 0, len(lines))
	for i, l := range lines {
		tokens = append(tokens, domain.RawToken{Text: l, Line: i, Confidence: 0.9})
	}
	a := domain.NewScanAttempt(attempt, domain.Preprocessed, "test", tokens, nil)
	return scanner.New(nil).Scan(a, now)
}

func idCandidate(value string, attempt, line int, prox domain.Proximity, ctx float64) domain.Candidate {
	return domain.Candidate{
		Kind: domain.FieldCivilID, Value: value, Attempt: attempt, Line: line,
		Confidence: 0.9, Proximity: prox, Source: domain.SourceLine, ContextScore: ctx,
	}
}

func TestResolveLabeledCard(t *testing.T) {
	fields := New().Resolve(scan(1,
		"STATE OF KUWAIT",
		"Civil ID No 303091600084",
		"Name Sara Al Ali",
		"Date of Birth 16/09/2003",
		"Expiry Date 15/09/2030",
	), now)

	assert.Equal(t, "303091600084", fields.CivilID.Value)
	assert.Equal(t, domain.MethodLabeledMatch, fields.CivilID.Method)
	assert.Equal(t, "16/09/2003", fields.BirthDate.Value)
	assert.Equal(t, domain.MethodLabeledMatch, fields.BirthDate.Method)
	assert.Equal(t, "15/09/2030", fields.ExpiryDate.Value)
	assert.Equal(t, domain.MethodLabeledMatch, fields.ExpiryDate.Method)
	assert.Equal(t, "Sara Al Ali", fields.Name.Value)
	assert.Equal(t, domain.MethodLabeledMatch, fields.Name.Method)
}

func TestResolveCivilID(t *testing.T) {
	t.Run("checksum outranks an invalid number", func(t *testing.T) {
		set := domain.NewCandidateSet()
		set.Add(idCandidate("282010112347", 1, 0, domain.ProximityNone, 0))
		set.Add(idCandidate("285122501235", 1, 1, domain.ProximityNone, 0))

		got := New().Resolve(set, now).CivilID
		assert.Equal(t, "285122501235", got.Value)
		assert.Equal(t, domain.MethodChecksumRanked, got.Method)
	})

	t.Run("all invalid still resolves with low confidence", func(t *testing.T) {
		set := domain.NewCandidateSet()
		set.Add(idCandidate("282010112347", 1, 0, domain.ProximityNone, 0))

		got := New().Resolve(set, now).CivilID
		require.True(t, got.Present)
		assert.Equal(t, domain.MethodUnchecksummed, got.Method)
		assert.Less(t, got.Confidence, 0.5)
	})

	t.Run("ties go to the earliest attempt then line", func(t *testing.T) {
		set := domain.NewCandidateSet()
		set.Add(idCandidate("303091600084", 2, 0, domain.ProximitySameLine, 10))
		set.Add(idCandidate("303091600084", 1, 5, domain.ProximitySameLine, 10))
		set.Add(idCandidate("303091600084", 1, 3, domain.ProximitySameLine, 10))

		got := New().Resolve(set, now).CivilID
		assert.Equal(t, 1, got.Attempt)
	})

	t.Run("no candidates", func(t *testing.T) {
		got := New().Resolve(scan(1, "Hello world", "Nothing here"), now).CivilID
		assert.False(t, got.Present)
		assert.Equal(t, domain.MethodUnresolved, got.Method)
	})
}

func TestResolveGroupedIDIgnoresLabelLength(t *testing.T) {
	for _, line := range []string{"Civil ID 3030 9160 0084", "Civil ID Number 3030 9160 0084"} {
		t.Run(line, func(t *testing.T) {
			got := New().Resolve(scan(0, line), now).CivilID
			assert.Equal(t, "303091600084", got.Value)
			assert.Equal(t, domain.MethodLabeledMatch, got.Method)
		})
	}
}

func TestResolveIsIdempotentAndOrderIndependent(t *testing.T) {
	cands := []domain.Candidate{
		idCandidate("282010112346", 1, 0, domain.ProximityNone, 0),
		idCandidate("285122501235", 2, 0, domain.ProximityNone, 0),
		idCandidate("282010112347", 1, 1, domain.ProximitySameLine, 10),
	}
	forward := domain.NewCandidateSet()
	backward := domain.NewCandidateSet()
	for i := range cands {
		forward.Add(cands[i])
		backward.Add(cands[len(cands)-1-i])
	}

	r := New()
	first := r.Resolve(forward, now)
	assert.Equal(t, first, r.Resolve(forward, now))
	assert.Equal(t, first, r.Resolve(backward, now))
}

func TestResolveBirthDate(t *testing.T) {
	t.Run("derived from civil id without labeled date", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Civil ID 282010112346"), now)
		assert.Equal(t, "01/01/1982", fields.BirthDate.Value)
		assert.Equal(t, domain.MethodDerivedFromID, fields.BirthDate.Method)
	})

	t.Run("implausible labeled date falls back to the id", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Civil ID 282010112346", "Date of Birth 01/01/1901"), now)
		assert.Equal(t, domain.MethodDerivedFromID, fields.BirthDate.Method)
	})

	t.Run("same line label beats next line label", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Date of Birth", "02/02/1990", "DOB 01/01/1982"), now)
		assert.Equal(t, "01/01/1982", fields.BirthDate.Value)
	})

	t.Run("unresolved without labels or id", func(t *testing.T) {
		fields := New().Resolve(scan(1, "05/05/1990"), now)
		assert.False(t, fields.BirthDate.Present)
	})
}

func TestResolveExpiry(t *testing.T) {
	t.Run("labeled expiry prefers dates after birth", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Date of Birth 16/09/2003", "Expiry 16/09/2003 15/09/2030"), now)
		assert.Equal(t, "15/09/2030", fields.ExpiryDate.Value)
		assert.Equal(t, domain.MethodLabeledMatch, fields.ExpiryDate.Method)
	})

	t.Run("positional after birth date", func(t *testing.T) {
		fields := New().Resolve(scan(1, "01/01/2031", "Civil ID 282010112346", "01/01/1982", "01/01/2030"), now)
		assert.Equal(t, "01/01/2030", fields.ExpiryDate.Value)
		assert.Equal(t, domain.MethodFallbackPositional, fields.ExpiryDate.Method)
	})

	t.Run("positional second date without birth date", func(t *testing.T) {
		fields := New().Resolve(scan(1, "05/05/1990", "05/05/1990", "06/06/2031"), now)
		assert.Equal(t, "06/06/2031", fields.ExpiryDate.Value)
	})

	t.Run("mrz fallback", func(t *testing.T) {
		fields := New().Resolve(scan(1, "X030916M300915<<<"), now)
		assert.Equal(t, "15/09/2030", fields.ExpiryDate.Value)
		assert.Equal(t, domain.MethodFallbackPositional, fields.ExpiryDate.Method)
	})
}

func TestResolveName(t *testing.T) {
	t.Run("label beats heuristic", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Ahmad Yousef Hassan", "Name", "Sara Al-Ali"), now)
		assert.Equal(t, "Sara AlAli", fields.Name.Value)
		assert.Equal(t, domain.MethodLabeledMatch, fields.Name.Method)
	})

	t.Run("heuristic when unlabeled", func(t *testing.T) {
		fields := New().Resolve(scan(1, "Ahmad Yousef Hassan", "303091600084"), now)
		assert.Equal(t, "Ahmad Yousef Hassan", fields.Name.Value)
		assert.Equal(t, domain.MethodHeuristic, fields.Name.Method)

		labeled := New().Resolve(scan(1, "Name: Ahmad Yousef Hassan"), now)
		assert.Greater(t, labeled.Name.Confidence, fields.Name.Confidence)
	})
}

func TestCivilIDScore(t *testing.T) {
	valid := idCandidate("285122501235", 1, 0, domain.ProximityNone, 0)
	invalid := idCandidate("285122501236", 1, 0, domain.ProximityNone, 0)
	assert.InDelta(t, 9.0, CivilIDScore(valid, now)-CivilIDScore(invalid, now), 1e-9)
}
