// Package scanner turns the text of one OCR attempt into typed field
// candidates. Scanning is a pure function of the tokens, the label
// dictionary and the reference date.
package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"docverify/internal/civilid"
	"docverify/internal/domain"
	"docverify/internal/extraction/labels"
)

// Context scores for Civil ID candidates. The resolver adds validity signals
// on top of these.
const (
	sameLineBonus   = 10.0
	nextLineBonus   = 7.0
	windowPenalty   = -1.0
	joinedPenalty   = -1.5
	tailBonus       = 3.0
	compactDiscount = 0.7
	maxJoinLines    = 4
	labelLookback   = 2

	compactDateLength = 8
)

var (
	datePattern    = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})\b`)
	mrzPattern     = regexp.MustCompile(`[A-Z](\d{6})[A-Z](\d{6})`)
	nameTokenStrip = regexp.MustCompile(`[^A-Za-z\x{0600}-\x{06FF}]`)
)

// Name-likeness thresholds.
const (
	sameLineNameScore  = 0.6
	nextLineNameScore  = 0.75
	heuristicNameScore = 0.55
)

var nonNameWords = []string{
	"birth", "dob", "expiry", "expiration", "civil id", "serial", "date",
	"nationality", "card", "state of", "kuwait",
}

// Scanner extracts candidates using an injected label dictionary.
type Scanner struct {
	labels *labels.Dictionary
}

// New creates a Scanner. A nil dictionary selects labels.Default.
func New(dict *labels.Dictionary) *Scanner {
	if dict == nil {
		dict = labels.Default()
	}
	return &Scanner{labels: dict}
}

// Scan produces the candidates observed in one attempt. Failed attempts and
// attempts with no matching text yield an empty set.
func (s *Scanner) Scan(attempt domain.ScanAttempt, now time.Time) *domain.CandidateSet {
	set := domain.NewCandidateSet()
	if attempt.Failed() {
		return set
	}
	lines := groupLines(attempt.Tokens)
	s.scanCivilIDs(set, lines, attempt.Index)
	s.scanDates(set, lines, attempt.Index, now)
	s.scanNames(set, lines, attempt.Index)
	return set
}

// Lines returns the normalized line texts of an attempt in reading order.
func Lines(attempt domain.ScanAttempt) []string {
	lines := groupLines(attempt.Tokens)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

// DocumentType guesses the document kind from the lines of every attempt.
func (s *Scanner) DocumentType(lines []string) string {
	return s.labels.DocumentType(lines)
}

func (s *Scanner) civilProximity(lines []textLine, i int) domain.Proximity {
	if s.labels.HasCivilID(lines[i].text) {
		return domain.ProximitySameLine
	}
	for j := i - 1; j >= 0 && j >= i-labelLookback; j-- {
		if s.labels.HasCivilID(lines[j].text) {
			return domain.ProximityNextLine
		}
	}
	return domain.ProximityNone
}

func proximityBonus(p domain.Proximity) float64 {
	switch p {
	case domain.ProximitySameLine:
		return sameLineBonus
	case domain.ProximityNextLine:
		return nextLineBonus
	}
	return 0
}

func (s *Scanner) scanCivilIDs(set *domain.CandidateSet, lines []textLine, attempt int) {
	proximity := make([]domain.Proximity, len(lines))
	for i := range lines {
		proximity[i] = s.civilProximity(lines, i)
	}

	add := func(value string, l textLine, column int, prox domain.Proximity, src domain.Source, adjust float64) {
		set.Add(domain.Candidate{
			Kind:         domain.FieldCivilID,
			Value:        value,
			Raw:          l.text,
			Line:         l.index,
			Column:       column,
			Attempt:      attempt,
			Confidence:   l.confidence,
			Proximity:    prox,
			Source:       src,
			ContextScore: proximityBonus(prox) + adjust,
		})
	}

	for i, l := range lines {
		prox := proximity[i]
		for _, run := range digitRuns(l.repaired) {
			switch {
			case len(run.value) == civilid.Length:
				add(run.value, l, run.column, prox, domain.SourceLine, 0)
			case len(run.value) > civilid.Length:
				for k := 0; k+civilid.Length <= len(run.value); k++ {
					add(run.value[k:k+civilid.Length], l, run.column+k, prox, domain.SourceWindow, windowPenalty)
				}
				if prox.Labeled() {
					off := len(run.value) - civilid.Length
					add(run.value[off:], l, run.column+off, prox, domain.SourceTail, tailBonus)
				}
			}
		}
	}

	// OCR splits long numbers across lines and digit groups.
	for i, l := range lines {
		if !joinable(l) {
			continue
		}
		chunk, pieces := leadingDigits(l), 1
		// A labeled line contributes every digit group, however long the label.
		if proximity[i] == domain.ProximitySameLine || digitDominant(l.repaired) {
			chunk, pieces = digitsOf(l.repaired), len(digitRuns(l.repaired))
		}
		if chunk == "" {
			continue
		}
		for j := i; j < len(lines) && j < i+maxJoinLines; j++ {
			if j > i {
				if !joinable(lines[j]) || !digitDominant(lines[j].repaired) {
					break
				}
				chunk += digitsOf(lines[j].repaired)
				pieces += len(digitRuns(lines[j].repaired))
			}
			if pieces < 2 || len(chunk) < civilid.Length {
				continue
			}
			for k := 0; k+civilid.Length <= len(chunk); k++ {
				add(chunk[k:k+civilid.Length], l, k, proximity[i], domain.SourceJoined, joinedPenalty)
			}
			break
		}
	}
}

// joinable excludes date and machine-readable-zone lines, whose digit groups
// would otherwise concatenate into bogus numbers.
func joinable(l textLine) bool {
	return !datePattern.MatchString(l.repaired) && !mrzPattern.MatchString(strings.ToUpper(l.repaired))
}

// leadingDigits returns the digits a line contributes to a cross-line join:
// all of them for digit-dominant lines, else the trailing run that may
// continue on the next line.
func leadingDigits(l textLine) string {
	if digitDominant(l.repaired) {
		return digitsOf(l.repaired)
	}
	runs := digitRuns(l.repaired)
	if len(runs) == 0 {
		return ""
	}
	return runs[len(runs)-1].value
}

func digitsOf(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func (s *Scanner) dateProximity(lines []textLine, i int, has func(string) bool) domain.Proximity {
	if has(lines[i].text) {
		return domain.ProximitySameLine
	}
	if i > 0 && has(lines[i-1].text+" "+lines[i].text) {
		return domain.ProximityNextLine
	}
	if i+1 < len(lines) && has(lines[i].text+" "+lines[i+1].text) {
		return domain.ProximityNextLine
	}
	return domain.ProximityNone
}

func (s *Scanner) scanDates(set *domain.CandidateSet, lines []textLine, attempt int, now time.Time) {
	for i, l := range lines {
		birthProx := s.dateProximity(lines, i, s.labels.HasBirthDate)
		expiryProx := s.dateProximity(lines, i, s.labels.HasExpiry)

		add := func(date time.Time, raw string, column int, src domain.Source, conf float64) {
			value := domain.FormatDate(date)
			set.Add(domain.Candidate{
				Kind: domain.FieldBirthDate, Value: value, Date: date, Raw: raw,
				Line: l.index, Column: column, Attempt: attempt, Confidence: conf,
				Proximity: birthProx, Source: src, ContextScore: proximityBonus(birthProx),
			})
			set.Add(domain.Candidate{
				Kind: domain.FieldExpiryDate, Value: value, Date: date, Raw: raw,
				Line: l.index, Column: column, Attempt: attempt, Confidence: conf,
				Proximity: expiryProx, Source: src, ContextScore: proximityBonus(expiryProx),
			})
		}

		for _, m := range datePattern.FindAllStringSubmatchIndex(l.repaired, -1) {
			g := func(n int) string { return l.repaired[m[2*n]:m[2*n+1]] }
			if date, ok := parseDMY(g(1), g(2), g(3), now); ok {
				add(date, l.repaired[m[0]:m[1]], m[0], domain.SourceDate, l.confidence)
			}
		}
		for _, run := range digitRuns(l.repaired) {
			if len(run.value) != compactDateLength {
				continue
			}
			if date, ok := parseDMY(run.value[0:2], run.value[2:4], run.value[4:8], now); ok {
				add(date, run.value, run.column, domain.SourceCompact, l.confidence*compactDiscount)
			}
		}

		upper := strings.ToUpper(l.repaired)
		for _, m := range mrzPattern.FindAllStringSubmatchIndex(upper, -1) {
			exp, ok := parseYYMMDD(upper[m[4]:m[5]], now.Year()%100+15, now)
			if !ok {
				continue
			}
			set.Add(domain.Candidate{
				Kind: domain.FieldExpiryDate, Value: domain.FormatDate(exp), Date: exp,
				Raw: upper[m[0]:m[1]], Line: l.index, Column: m[4], Attempt: attempt,
				Confidence: l.confidence * compactDiscount, Proximity: domain.ProximityNone,
				Source: domain.SourceMRZ,
			})
		}
	}
}

// parseDMY parses day, month and year strings. Two-digit years pivot on the
// current year; dates up to thirty years ahead are accepted so expiry dates
// survive.
func parseDMY(dayS, monthS, yearS string, now time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayS)
	month, _ := strconv.Atoi(monthS)
	year, err := strconv.Atoi(yearS)
	if err != nil {
		return time.Time{}, false
	}
	if len(yearS) <= 2 {
		if year <= now.Year()%100 {
			year += 2000
		} else {
			year += 1900
		}
	}
	return calendarDate(year, month, day, now)
}

// parseYYMMDD parses a machine-readable-zone date. Years up to pivot map to
// the 2000s.
func parseYYMMDD(token string, pivot int, now time.Time) (time.Time, bool) {
	if len(token) != 6 {
		return time.Time{}, false
	}
	yy, err := strconv.Atoi(token[0:2])
	if err != nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(token[2:4])
	day, _ := strconv.Atoi(token[4:6])
	year := 1900 + yy
	if yy <= pivot {
		year = 2000 + yy
	}
	return calendarDate(year, month, day, now)
}

func calendarDate(year, month, day int, now time.Time) (time.Time, bool) {
	if year < 1900 || year > now.Year()+30 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func (s *Scanner) scanNames(set *domain.CandidateSet, lines []textLine, attempt int) {
	add := func(value string, l textLine, prox domain.Proximity, src domain.Source, score float64) {
		set.Add(domain.Candidate{
			Kind: domain.FieldName, Value: value, Raw: l.text, Line: l.index,
			Attempt: attempt, Confidence: l.confidence, Proximity: prox,
			Source: src, ContextScore: score,
		})
	}

	for i, l := range lines {
		if !s.labels.HasName(l.text) {
			continue
		}
		if rest, ok := s.labels.AfterName(l.text); ok {
			value := cleanName(rest)
			if score := nameScore(value); value != "" && !s.labels.NonName(value) && score > sameLineNameScore {
				add(value, l, domain.ProximitySameLine, domain.SourceLabel, score)
				continue
			}
		}
		for j := i + 1; j < len(lines) && j <= i+labelLookback; j++ {
			value := cleanName(lines[j].text)
			if value == "" || s.labels.HasName(value) || s.labels.NonName(value) {
				continue
			}
			if score := nameScore(value); score > nextLineNameScore {
				add(value, lines[j], domain.ProximityNextLine, domain.SourceLabel, score)
				break
			}
		}
	}

	for _, l := range lines {
		if s.labels.HasName(l.text) || s.labels.NonName(l.text) {
			continue
		}
		score := nameScore(l.text)
		if score <= heuristicNameScore {
			continue
		}
		value := cleanName(l.text)
		if value == "" {
			value = strings.Join(strings.Fields(l.text), " ")
		}
		add(value, l, domain.ProximityNone, domain.SourceHeuristic, score)
	}
}

// cleanName keeps the Latin and Arabic letters of each word and requires at
// least two words.
func cleanName(value string) string {
	value = strings.Trim(value, ": -\t")
	parts := strings.Fields(value)
	if len(parts) < 2 {
		return ""
	}
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if tok := nameTokenStrip.ReplaceAllString(p, ""); tok != "" {
			cleaned = append(cleaned, tok)
		}
	}
	return strings.Join(cleaned, " ")
}

// nameScore rates how much a line looks like a person's name. Negative
// scores rule the line out.
func nameScore(line string) float64 {
	runes := []rune(line)
	if len(runes) < 3 {
		return -1
	}
	lowered := strings.ToLower(line)
	for _, w := range nonNameWords {
		if strings.Contains(lowered, w) {
			return -1
		}
	}
	alpha, digits := 0, 0
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			alpha++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if alpha == 0 {
		return -1
	}
	ratio := float64(alpha) / float64(len(runes))
	return ratio + float64(min(alpha, 36))/80 - float64(digits)*0.1
}
