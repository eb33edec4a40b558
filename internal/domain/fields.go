package domain

import "time"

// DateLayout is the day/month/year form used for every date leaving the engine.
const DateLayout = "02/01/2006"

// FieldKind names one of the document fields the engine resolves.
type FieldKind string

const (
	FieldCivilID    FieldKind = "civil_id"
	FieldBirthDate  FieldKind = "birth_date"
	FieldExpiryDate FieldKind = "expiry_date"
	FieldName       FieldKind = "name"
)

// AllFields lists the field kinds in resolution order.
var AllFields = []FieldKind{FieldCivilID, FieldBirthDate, FieldExpiryDate, FieldName}

// RequiredFields must resolve for a scan to be conclusive and drive retries.
var RequiredFields = []FieldKind{FieldCivilID, FieldBirthDate}

// BoundingBox is a pixel rectangle in the image the tokens were read from.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Union returns the smallest box covering both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if b.Width == 0 && b.Height == 0 {
		return other
	}
	if other.Width == 0 && other.Height == 0 {
		return b
	}
	x0 := min(b.X, other.X)
	y0 := min(b.Y, other.Y)
	x1 := max(b.X+b.Width, other.X+other.Width)
	y1 := max(b.Y+b.Height, other.Y+other.Height)
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// RawToken is one piece of OCR output. Tokens are never modified after the
// OCR collaborator produces them.
type RawToken struct {
	Text       string
	Line       int
	Box        *BoundingBox
	Confidence float64
}

// FormatDate renders t in DateLayout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AgeAt returns the whole years between dob and now.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
