package scanner

import (
	"slices"
	"strings"
	"unicode"

	"docverify/internal/civilid"
	"docverify/internal/domain"
)

// textLine is one OCR line after digit normalization.
type textLine struct {
	index      int // line index reported by OCR
	text       string
	repaired   string // look-alike characters repaired in digit-dominant tokens
	confidence float64
}

// groupLines joins tokens into lines ordered by line index. Blank lines are
// dropped.
func groupLines(tokens []domain.RawToken) []textLine {
	byLine := make(map[int][]domain.RawToken)
	for _, tok := range tokens {
		byLine[tok.Line] = append(byLine[tok.Line], tok)
	}
	indexes := make([]int, 0, len(byLine))
	for idx := range byLine {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	lines := make([]textLine, 0, len(indexes))
	for _, idx := range indexes {
		parts := make([]string, 0, len(byLine[idx]))
		for _, tok := range byLine[idx] {
			if t := strings.TrimSpace(tok.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text := strings.TrimSpace(civilid.NormalizeDigits(strings.Join(parts, " ")))
		if text == "" {
			continue
		}
		lines = append(lines, textLine{
			index:      idx,
			text:       text,
			repaired:   repairLine(text),
			confidence: domain.AggregateConfidence(byLine[idx]),
		})
	}
	return lines
}

func repairLine(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if digitDominant(f) {
			fields[i] = civilid.RecoverDigits(f)
		}
	}
	return strings.Join(fields, " ")
}

// digitDominant reports whether at least half the letters and digits in s
// are digits.
func digitDominant(s string) bool {
	digits, letters := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case unicode.IsLetter(r) || r == '|':
			letters++
		}
	}
	return digits > 0 && digits >= letters
}

type digitRun struct {
	value  string
	column int
}

// digitRuns returns the maximal runs of ASCII digits in s.
func digitRuns(s string) []digitRun {
	var runs []digitRun
	start := -1
	for i := 0; i <= len(s); i++ {
		isDigit := i < len(s) && s[i] >= '0' && s[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			runs = append(runs, digitRun{value: s[start:i], column: start})
			start = -1
		}
	}
	return runs
}
