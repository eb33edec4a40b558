package domain

import "time"

// Document type hints.
const (
	DocumentCivilID       = "civil_id"
	DocumentBankStatement = "bank_statement"
	DocumentUnknown       = "unknown"
)

// AttemptSummary is the serializable view of a ScanAttempt.
type AttemptSummary struct {
	Variant    string  `json:"variant"`
	Engine     string  `json:"engine"`
	Confidence float64 `json:"confidence"`
	Tokens     int     `json:"tokens"`
	Error      string  `json:"error,omitempty"`
}

// Summarize converts an attempt for output.
func Summarize(a ScanAttempt) AttemptSummary {
	s := AttemptSummary{
		Variant:    a.Variant.String(),
		Engine:     a.Engine,
		Confidence: a.Confidence,
		Tokens:     len(a.Tokens),
	}
	if a.Err != nil {
		s.Error = a.Err.Error()
	}
	return s
}

// OCRMetadata describes how the OCR side of a scan went.
type OCRMetadata struct {
	Engine      string           `json:"engine"`
	Attempts    int              `json:"attempts"`
	Confidence  float64          `json:"confidence"`
	SkewAngle   float64          `json:"skew_angle"`
	Termination string           `json:"termination,omitempty"`
	History     []AttemptSummary `json:"history,omitempty"`
}

// ScanResult is the complete output of one document scan.
type ScanResult struct {
	ScanID       string           `json:"scan_id"`
	DocumentType string           `json:"document_type"`
	Fields       ResolvedFields   `json:"fields"`
	Validation   ValidationResult `json:"validation"`
	Verdict      Verdict          `json:"verdict"`
	Warnings     []string         `json:"warnings"`
	OCR          OCRMetadata      `json:"ocr"`
	ScannedAt    time.Time        `json:"scanned_at"`
}
