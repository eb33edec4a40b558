package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docverify/internal/domain"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	"docverify/pkg/requestcontext"
)

// multipartOverhead is allowed on top of the document size for form fields
// and part headers.
const multipartOverhead = 1 << 20

// Service defines the interface for scan operations.
type Service interface {
	ScanBytes(ctx context.Context, data []byte, exp domain.Expectations) (*domain.ScanResult, error)
	Engine() string
}

// Handler wires scan endpoints to the scan service.
type Handler struct {
	service  Service
	logger   *slog.Logger
	maxBytes int64
}

// New constructs a scan handler. maxBytes bounds the uploaded document.
func New(service Service, logger *slog.Logger, maxBytes int64) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Register mounts scan endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/scans", h.HandleScan)
	r.Get("/v1/engine", h.HandleEngine)
}

// HandleScan handles POST /v1/scans. The body is multipart/form-data with a
// "file" part and optional "expected_name" and "expected_dob" fields.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	data, exp, err := h.readUpload(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "scan upload rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ScanBytes(ctx, data, exp)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "scan did not complete")
		}
		h.logger.ErrorContext(ctx, "scan failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "scan served",
		"request_id", requestID,
		"scan_id", result.ScanID,
		"verdict", result.Verdict,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleEngine handles GET /v1/engine.
func (h *Handler) HandleEngine(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"engine": h.service.Engine()})
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, domain.Expectations, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		return nil, domain.Expectations{}, uploadError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, domain.Expectations{}, dErrors.New(dErrors.CodeBadRequest, "file is required")
	}
	defer file.Close()
	if header.Size > h.maxBytes {
		return nil, domain.Expectations{}, dErrors.New(dErrors.CodeTooLarge, "document exceeds the size limit")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.Expectations{}, uploadError(err)
	}
	if len(data) == 0 {
		return nil, domain.Expectations{}, dErrors.New(dErrors.CodeBadRequest, "file is empty")
	}

	exp := domain.Expectations{
		Name:      r.FormValue("expected_name"),
		BirthDate: r.FormValue("expected_dob"),
	}
	return data, exp, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return dErrors.Wrap(err, dErrors.CodeTooLarge, "document exceeds the size limit")
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, multipart.ErrMessageTooLarge):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "expected a multipart/form-data upload")
	default:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed upload")
	}
}
