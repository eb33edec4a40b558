package domain

import (
	"fmt"
	"strings"
	"time"

	dErrors "docverify/pkg/domain-errors"
)

var expectationLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "2006/01/02"}

// Expectations are optional values the caller expects the document to carry.
type Expectations struct {
	Name      string `json:"expected_name,omitempty"`
	BirthDate string `json:"expected_dob,omitempty"`
}

// ParseDate accepts the date forms callers commonly supply.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range expectationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// Validate rejects expectations the engine cannot interpret.
func (e Expectations) Validate() error {
	if strings.TrimSpace(e.BirthDate) == "" {
		return nil
	}
	if _, err := ParseDate(e.BirthDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "expected_dob must be YYYY-MM-DD or DD/MM/YYYY")
	}
	return nil
}

// ExpectedName returns the trimmed expected name, "" when not supplied.
func (e Expectations) ExpectedName() string {
	return strings.TrimSpace(e.Name)
}

// ExpectedBirthDate returns the parsed expected birth date if supplied and valid.
func (e Expectations) ExpectedBirthDate() (time.Time, bool) {
	if strings.TrimSpace(e.BirthDate) == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(e.BirthDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
