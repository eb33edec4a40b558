package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateSet(t *testing.T) {
	id := Candidate{Kind: FieldCivilID, Value: "303091600084", Attempt: 1, Source: SourceLine}
	dob := Candidate{
		Kind:    FieldBirthDate,
		Value:   "16/09/2003",
		Date:    time.Date(2003, 9, 16, 0, 0, 0, 0, time.UTC),
		Attempt: 1,
		Source:  SourceDate,
	}

	t.Run("zero value accepts candidates", func(t *testing.T) {
		var s CandidateSet
		s.Add(id)
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, []Candidate{id}, s.Of(FieldCivilID))
	})

	t.Run("nil set is empty", func(t *testing.T) {
		var s *CandidateSet
		assert.Equal(t, 0, s.Len())
		assert.Nil(t, s.Of(FieldName))
	})

	t.Run("Of returns a copy", func(t *testing.T) {
		s := NewCandidateSet()
		s.Add(id)
		got := s.Of(FieldCivilID)
		got[0].Value = "tampered"
		assert.Equal(t, "303091600084", s.Of(FieldCivilID)[0].Value)
	})

	t.Run("merge keeps duplicates and grows monotonically", func(t *testing.T) {
		first := NewCandidateSet()
		first.Add(id)
		first.Add(dob)

		acc := NewCandidateSet()
		acc.Merge(first)
		before := acc.Clone()

		second := NewCandidateSet()
		second.Add(id)
		acc.Merge(second)

		require.True(t, acc.Contains(before))
		assert.Equal(t, 3, acc.Len())
		assert.Equal(t, 2, acc.Count(id))
		assert.False(t, before.Contains(acc))
	})
}

func TestResolvedFieldsMissing(t *testing.T) {
	fields := EmptyFields()
	fields.CivilID = ResolvedField{Kind: FieldCivilID, Value: "303091600084", Present: true, Method: MethodChecksumRanked}

	assert.Equal(t, []FieldKind{FieldBirthDate}, fields.Missing(RequiredFields...))
	assert.Equal(t, MethodUnresolved, fields.Get(FieldName).Method)
}

func TestExpectations(t *testing.T) {
	tests := []struct {
		name    string
		exp     Expectations
		wantErr bool
		wantDOB time.Time
		hasDOB  bool
	}{
		{name: "empty", exp: Expectations{}},
		{
			name:    "iso date",
			exp:     Expectations{BirthDate: "1982-01-15"},
			wantDOB: time.Date(1982, 1, 15, 0, 0, 0, 0, time.UTC),
			hasDOB:  true,
		},
		{
			name:    "day first date",
			exp:     Expectations{BirthDate: " 15/01/1982 "},
			wantDOB: time.Date(1982, 1, 15, 0, 0, 0, 0, time.UTC),
			hasDOB:  true,
		},
		{name: "garbage", exp: Expectations{BirthDate: "last tuesday"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.exp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			got, ok := tt.exp.ExpectedBirthDate()
			assert.Equal(t, tt.hasDOB, ok)
			if tt.hasDOB {
				assert.True(t, tt.wantDOB.Equal(got))
			}
		})
	}
}

func TestAggregateConfidence(t *testing.T) {
	assert.Zero(t, AggregateConfidence(nil))
	assert.InDelta(t, 0.5, AggregateConfidence([]RawToken{{Confidence: 0.2}, {Confidence: 0.8}}), 1e-9)
	assert.InDelta(t, 0.5, AggregateConfidence([]RawToken{{Confidence: -1}, {Confidence: 3}}), 1e-9)

	failed := NewScanAttempt(1, Original, "tesseract", []RawToken{{Confidence: 0.9}}, assert.AnError)
	assert.True(t, failed.Failed())
	assert.Zero(t, failed.Confidence)

	empty := NewScanAttempt(2, Original, "tesseract", nil, nil)
	assert.True(t, empty.Failed())
	assert.False(t, NewScanAttempt(3, Original, "tesseract", []RawToken{{Text: "x"}}, nil).Failed())
	assert.Equal(t, "rotated_90", Rotated(90).String())
}
