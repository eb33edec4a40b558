// Package labels holds the English and Arabic label dictionaries used to
// anchor field candidates. A Dictionary is built once at startup and shared
// read-only by every scan.
package labels

import (
	"regexp"
	"slices"
	"strings"

	"docverify/internal/domain"
)

var (
	idNumberPattern = regexp.MustCompile(`\bid(?:\s*no|\s*number|[:#])`)
	nonLetters      = regexp.MustCompile(`[^a-z]`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// Dictionary groups label phrases per field. Phrases are stored lowercased
// and matched as substrings of the lowercased line.
type Dictionary struct {
	civilID   []string
	birthDate []string
	expiry    []string
	name      []string
	nonName   []string
}

// Default returns the built-in English and Arabic dictionary.
func Default() *Dictionary {
	return &Dictionary{
		civilID: []string{
			"civil id", "civilid", "id number", "id no", "civil",
			"الرقم المدني", "رقم مدني", "البطاقة المدنية",
		},
		birthDate: []string{
			"dob", "date of birth", "birth date", "birth",
			"تاريخ الميلاد", "ميلاد",
		},
		expiry: []string{
			"expiry", "expiry date", "expiration", "expiration date", "exp date", "valid until",
			"تاريخ الانتهاء", "الانتهاء",
		},
		name: []string{
			"full name", "customer name", "account holder", "name",
			"الاسم الكامل", "اسم العميل", "اسم صاحب الحساب", "الاسم",
		},
		nonName: []string{
			"birthdate", "dateofbirth", "dob", "expiry", "expiration",
			"civilid", "civilnumber", "idnumber", "serial",
		},
	}
}

// Extend returns a copy of d with extra phrases added per field. Unknown
// field kinds are ignored.
func (d *Dictionary) Extend(extra map[domain.FieldKind][]string) *Dictionary {
	out := &Dictionary{
		civilID:   slices.Clone(d.civilID),
		birthDate: slices.Clone(d.birthDate),
		expiry:    slices.Clone(d.expiry),
		name:      slices.Clone(d.name),
		nonName:   slices.Clone(d.nonName),
	}
	for kind, phrases := range extra {
		var target *[]string
		switch kind {
		case domain.FieldCivilID:
			target = &out.civilID
		case domain.FieldBirthDate:
			target = &out.birthDate
		case domain.FieldExpiryDate:
			target = &out.expiry
		case domain.FieldName:
			target = &out.name
		default:
			continue
		}
		for _, p := range phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" && !slices.Contains(*target, p) {
				*target = append(*target, p)
			}
		}
	}
	// Longest first so the name value after the label is cut at the right place.
	slices.SortStableFunc(out.name, func(a, b string) int { return len(b) - len(a) })
	return out
}

// HasCivilID reports whether line carries a Civil ID label.
func (d *Dictionary) HasCivilID(line string) bool {
	lowered := strings.ToLower(line)
	if containsAny(lowered, d.civilID) {
		return true
	}
	if strings.Contains(whitespace.ReplaceAllString(lowered, ""), "civilid") {
		return true
	}
	return idNumberPattern.MatchString(lowered)
}

// HasBirthDate reports whether line carries a birth date label.
func (d *Dictionary) HasBirthDate(line string) bool {
	lowered := strings.ToLower(line)
	if containsAny(lowered, d.birthDate) {
		return true
	}
	compact := letters(lowered)
	return strings.Contains(compact, "dateofbirth") ||
		strings.Contains(compact, "birthdate") ||
		strings.Contains(compact, "dob")
}

// HasExpiry reports whether line carries an expiry label, tolerating the
// letter splits OCR produces in "Expiry Date".
func (d *Dictionary) HasExpiry(line string) bool {
	lowered := strings.ToLower(line)
	if containsAny(lowered, d.expiry) {
		return true
	}
	compact := letters(lowered)
	for _, tok := range []string{"expiry", "expiration", "validuntil", "validtill"} {
		if strings.Contains(compact, tok) {
			return true
		}
	}
	if strings.Contains(compact, "date") {
		for _, tok := range []string{"exp", "piy", "iry", "piry"} {
			if strings.Contains(compact, tok) {
				return true
			}
		}
	}
	return false
}

// HasName reports whether line carries a name label.
func (d *Dictionary) HasName(line string) bool {
	return containsAny(strings.ToLower(line), d.name)
}

// AfterName returns the text following the first (longest) name label on line.
func (d *Dictionary) AfterName(line string) (string, bool) {
	lowered := strings.ToLower(line)
	for _, label := range d.name {
		pos := strings.Index(lowered, label)
		if pos < 0 {
			continue
		}
		// Lowercasing can change byte lengths; fall back to the lowered text then.
		if len(lowered) == len(line) {
			return line[pos+len(label):], true
		}
		return lowered[pos+len(label):], true
	}
	return "", false
}

// NonName reports whether value reads like another field's label rather than
// a person's name.
func (d *Dictionary) NonName(value string) bool {
	return containsAny(letters(strings.ToLower(value)), d.nonName)
}

// DocumentType hints at the kind of document from its text.
func (d *Dictionary) DocumentType(lines []string) string {
	text := strings.ToLower(strings.Join(lines, "\n"))
	switch {
	case strings.Contains(text, "civil id"),
		strings.Contains(text, "البطاقة المدنية"),
		strings.Contains(text, "بطاقة مدنية"):
		return domain.DocumentCivilID
	case strings.Contains(text, "statement"),
		strings.Contains(text, "bank"),
		strings.Contains(text, "كشف حساب"):
		return domain.DocumentBankStatement
	}
	return domain.DocumentUnknown
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func letters(s string) string {
	return nonLetters.ReplaceAllString(s, "")
}
