package validation

import (
	"fmt"
	"time"

	"docverify/internal/civilid"
	"docverify/internal/domain"
)

// Each check is a pure function of the fields it names. None of them reads
// another check's outcome.

func checkFormat(id domain.ResolvedField) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckCivilIDFormat, Severity: domain.SeverityHard}
	switch {
	case !id.Present:
		r.Outcome, r.Reason = domain.OutcomeSkipped, "civil id not found"
	case civilid.ValidFormat(id.Value):
		r.Outcome, r.Reason = domain.OutcomePassed, "civil id has 12 digits"
	default:
		r.Outcome, r.Reason = domain.OutcomeFailed, "civil id must be exactly 12 digits"
	}
	return r
}

func checkChecksum(id domain.ResolvedField) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckCivilIDChecksum, Severity: domain.SeverityHard}
	switch {
	case !id.Present:
		r.Outcome, r.Reason = domain.OutcomeSkipped, "civil id not found"
	case !civilid.ValidFormat(id.Value):
		r.Outcome, r.Reason = domain.OutcomeSkipped, "civil id malformed"
	case civilid.ValidChecksum(id.Value):
		r.Outcome, r.Reason = domain.OutcomePassed, "check digit matches (community formula, unofficial)"
	default:
		r.Outcome, r.Reason = domain.OutcomeFailed, "check digit mismatch (community formula, unofficial)"
	}
	return r
}

func checkPlausibility(dob domain.ResolvedField, minAge, maxAge int, now time.Time) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckDOBPlausibility, Severity: domain.SeveritySoft}
	if !dob.Present {
		r.Outcome, r.Reason = domain.OutcomeSkipped, "birth date not found"
		return r
	}
	if dob.Date.After(now) {
		r.Outcome, r.Reason = domain.OutcomeFailed, "birth date is in the future"
		return r
	}
	age := domain.AgeAt(dob.Date, now)
	if age < minAge || age > maxAge {
		r.Outcome = domain.OutcomeFailed
		r.Reason = fmt.Sprintf("age %d outside [%d, %d]", age, minAge, maxAge)
		return r
	}
	r.Outcome, r.Reason = domain.OutcomePassed, fmt.Sprintf("age %d", age)
	return r
}

func checkConsistency(id, dob domain.ResolvedField, now time.Time) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckCivilIDDOB, Severity: domain.SeveritySoft}
	if !id.Present || !dob.Present {
		r.Outcome, r.Reason = domain.OutcomeSkipped, "civil id or birth date not found"
		return r
	}
	if dob.Method == domain.MethodDerivedFromID {
		r.Outcome, r.Reason = domain.OutcomeSkipped, "birth date was derived from the civil id"
		return r
	}
	encoded, ok := civilid.BirthDate(id.Value, now)
	if !ok {
		r.Outcome, r.Reason = domain.OutcomeSkipped, "civil id does not encode a valid birth date"
		return r
	}
	if domain.Day(encoded).Equal(domain.Day(dob.Date)) {
		r.Outcome, r.Reason = domain.OutcomePassed, "birth date matches civil id"
		return r
	}
	r.Outcome = domain.OutcomeFailed
	r.Reason = fmt.Sprintf("civil id encodes %s, document shows %s", domain.FormatDate(encoded), dob.Value)
	return r
}

func checkName(name domain.ResolvedField, expected string, sim Similarity, threshold float64) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckExpectedNameMatch, Severity: domain.SeveritySoft}
	switch {
	case expected == "":
		r.Outcome, r.Reason = domain.OutcomeSkipped, "no expected name supplied"
		return r
	case !name.Present:
		r.Outcome, r.Reason = domain.OutcomeSkipped, "name not found"
		return r
	}
	score := min(max(sim.Similarity(expected, name.Value), 0), 1)
	r.Score = &score
	if score >= threshold {
		r.Outcome = domain.OutcomePassed
		r.Reason = fmt.Sprintf("similarity %.2f >= %.2f", score, threshold)
	} else {
		r.Outcome = domain.OutcomeFailed
		r.Reason = fmt.Sprintf("similarity %.2f < %.2f", score, threshold)
	}
	return r
}

func checkExpectedDOB(dob domain.ResolvedField, expected time.Time, supplied bool) domain.CheckResult {
	r := domain.CheckResult{Name: domain.CheckExpectedDOBMatch, Severity: domain.SeveritySoft}
	switch {
	case !supplied:
		r.Outcome, r.Reason = domain.OutcomeSkipped, "no expected birth date supplied"
	case !dob.Present:
		r.Outcome, r.Reason = domain.OutcomeSkipped, "birth date not found"
	case domain.Day(expected).Equal(domain.Day(dob.Date)):
		r.Outcome, r.Reason = domain.OutcomePassed, "birth date matches expected"
	default:
		r.Outcome = domain.OutcomeFailed
		r.Reason = fmt.Sprintf("expected %s, document shows %s", domain.FormatDate(expected), dob.Value)
	}
	return r
}
