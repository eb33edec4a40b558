package domain

import "time"

// Method records how the resolver arrived at a field value.
type Method string

const (
	MethodLabeledMatch       Method = "labeled_match"
	MethodChecksumRanked     Method = "checksum_ranked"
	MethodUnchecksummed      Method = "unchecksummed"
	MethodFallbackPositional Method = "fallback_positional"
	MethodDerivedFromID      Method = "derived_from_id"
	MethodHeuristic          Method = "heuristic"
	MethodUnresolved         Method = "unresolved"
)

// ResolvedField is the single chosen value for a field, or its absence.
type ResolvedField struct {
	Kind       FieldKind `json:"-"`
	Value      string    `json:"value,omitempty"`
	Date       time.Time `json:"-"`
	Present    bool      `json:"present"`
	Confidence float64   `json:"confidence"`
	Method     Method    `json:"method"`
	Attempt    int       `json:"attempt,omitempty"`
}

// Unresolved returns the absent field for kind.
func Unresolved(kind FieldKind) ResolvedField {
	return ResolvedField{Kind: kind, Method: MethodUnresolved}
}

// ResolvedFields holds exactly one ResolvedField per field kind.
type ResolvedFields struct {
	CivilID    ResolvedField `json:"civil_id"`
	BirthDate  ResolvedField `json:"birth_date"`
	ExpiryDate ResolvedField `json:"expiry_date"`
	Name       ResolvedField `json:"name"`
}

// EmptyFields returns a ResolvedFields with every field unresolved.
func EmptyFields() ResolvedFields {
	return ResolvedFields{
		CivilID:    Unresolved(FieldCivilID),
		BirthDate:  Unresolved(FieldBirthDate),
		ExpiryDate: Unresolved(FieldExpiryDate),
		Name:       Unresolved(FieldName),
	}
}

// Get returns the field for kind.
func (f ResolvedFields) Get(kind FieldKind) ResolvedField {
	switch kind {
	case FieldCivilID:
		return f.CivilID
	case FieldBirthDate:
		return f.BirthDate
	case FieldExpiryDate:
		return f.ExpiryDate
	case FieldName:
		return f.Name
	default:
		return Unresolved(kind)
	}
}

// Missing returns the kinds among kinds that are not present.
func (f ResolvedFields) Missing(kinds ...FieldKind) []FieldKind {
	var missing []FieldKind
	for _, k := range kinds {
		if !f.Get(k).Present {
			missing = append(missing, k)
		}
	}
	return missing
}
