package domain

// CheckName identifies one validation check.
type CheckName string

const (
	CheckCivilIDFormat     CheckName = "civil_id_format"
	CheckCivilIDChecksum   CheckName = "civil_id_checksum"
	CheckDOBPlausibility   CheckName = "dob_plausibility"
	CheckCivilIDDOB        CheckName = "civil_id_dob_consistency"
	CheckExpectedNameMatch CheckName = "expected_name_match"
	CheckExpectedDOBMatch  CheckName = "expected_dob_match"
)

// Outcome is the result of a single check.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Severity decides how a failed check affects the verdict.
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// Verdict is the overall authenticity decision.
type Verdict string

const (
	VerdictValid        Verdict = "valid"
	VerdictSuspicious   Verdict = "suspicious"
	VerdictInvalid      Verdict = "invalid"
	VerdictInconclusive Verdict = "inconclusive"
)

// CheckResult is the outcome of one check with a human-readable reason.
type CheckResult struct {
	Name     CheckName `json:"name"`
	Severity Severity  `json:"severity"`
	Outcome  Outcome   `json:"outcome"`
	Reason   string    `json:"reason"`
	Score    *float64  `json:"score,omitempty"`
}

// ValidationResult carries every check in a fixed order plus the verdict.
type ValidationResult struct {
	Checks   []CheckResult `json:"checks"`
	Verdict  Verdict       `json:"verdict"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Check looks up a check by name.
func (r ValidationResult) Check(name CheckName) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}
