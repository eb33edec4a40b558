package handler

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docverify/internal/domain"
	"docverify/internal/scan/handler/mocks"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/testutil"
)

// =============================================================================
// Scan Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns upload parsing, size limits
// and error translation. The service is mocked so each HTTP contract is
// exercised in isolation.

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

const testMaxBytes = 64

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), testMaxBytes)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) upload(fields map[string]string, data []byte) *http.Request {
	return testutil.NewMultipartRequest(s.T(), http.MethodPost, "/v1/scans", fields,
		testutil.Upload{Field: "file", Filename: "card.png", Data: data})
}

// =============================================================================
// POST /v1/scans
// =============================================================================

func (s *HandlerSuite) TestScanSuccess() {
	scannedAt := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.service.EXPECT().
		ScanBytes(gomock.Any(), []byte("image-bytes"), domain.Expectations{Name: "Sara Al Ali", BirthDate: "2003-09-16"}).
		Return(&domain.ScanResult{
			ScanID:    "scan-1",
			Verdict:   domain.VerdictValid,
			Fields:    domain.EmptyFields(),
			Warnings:  []string{},
			ScannedAt: scannedAt,
		}, nil)

	rr := testutil.DoRequest(s.router, s.upload(map[string]string{
		"expected_name": "Sara Al Ali",
		"expected_dob":  "2003-09-16",
	}, []byte("image-bytes")))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.UnmarshalResponse[domain.ScanResult](s.T(), rr)
	s.Equal("scan-1", body.ScanID)
	s.Equal(domain.VerdictValid, body.Verdict)
	s.Equal(scannedAt, body.ScannedAt)
	s.NotNil(body.Warnings)
}

func (s *HandlerSuite) TestScanRejectsBadUploads() {
	s.Run("missing file part", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/v1/scans", map[string]string{"expected_name": "x"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("empty file", func() {
		rr := testutil.DoRequest(s.router, s.upload(nil, nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("not multipart", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/scans")
		req.Header.Set("Content-Type", "application/json")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("file over the limit", func() {
		rr := testutil.DoRequest(s.router, s.upload(nil, make([]byte, testMaxBytes+1)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusRequestEntityTooLarge, "payload_too_large")
	})
}

func (s *HandlerSuite) TestScanServiceErrors() {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid expectations", dErrors.New(dErrors.CodeValidation, "expected_dob must be YYYY-MM-DD or DD/MM/YYYY"), http.StatusUnprocessableEntity, "validation_error"},
		{"request canceled", context.Canceled, http.StatusServiceUnavailable, "service_unavailable"},
		{"unexpected failure", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.service.EXPECT().ScanBytes(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)
			rr := testutil.DoRequest(s.router, s.upload(map[string]string{"expected_dob": "soon"}, []byte("img")))
			testutil.AssertStatusAndError(s.T(), rr, tt.status, tt.code)
		})
	}
}

// =============================================================================
// GET /v1/engine
// =============================================================================

func (s *HandlerSuite) TestEngine() {
	s.service.EXPECT().Engine().Return("tesseract")

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/engine"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.UnmarshalResponse[map[string]string](s.T(), rr)
	s.Equal("tesseract", (*body)["engine"])
}
