package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Loaders, OCR engines and other
// collaborators return these (optionally wrapped) so the scan service can
// translate them into warnings or coded errors.
//
// These represent factual states about inputs and collaborators, not check failures:
// - ErrInvalidInput: the payload cannot be decoded as a document image
// - ErrUnsupported: the payload format is recognized but not supported
// - ErrTooLarge: the payload exceeds the configured size limit
// - ErrUnavailable: a collaborator (OCR engine) cannot serve requests
// - ErrNotFound: a named resource (engine, file) does not exist
//
// Check failures (bad checksum, name mismatch) are never errors; they are
// reported in the validation result.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported")
	ErrTooLarge     = errors.New("too large")
	ErrUnavailable  = errors.New("unavailable")
	ErrNotFound     = errors.New("not found")
)
