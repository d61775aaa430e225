package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pdfsummarizer/internal/domain"
)

const documentField = "document"

type textRequest struct {
	Text string `json:"text"`
}

type summaryResponse struct {
	Mode       domain.Mode `json:"mode"`
	Extracted  string      `json:"extracted,omitempty"`
	Summary    string      `json:"summary"`
	Paragraphs []string    `json:"paragraphs"`
}

type healthResponse struct {
	Status string `json:"status"`
	OCR    bool   `json:"ocr"`
}

type errorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, healthResponse{
		Status: "ok",
		OCR:    s.pipeline.DocumentsEnabled(),
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxDocumentBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, domain.NewError(domain.KindValidation, "Request body must be JSON with a \"text\" field.", err))
		return
	}

	outcome, err := s.pipeline.SummarizeText(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOutcome(w, r, outcome)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if !s.pipeline.DocumentsEnabled() {
		s.writeError(w, r, domain.Errorf(domain.KindConfiguration, "Document analysis is not configured."))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxDocumentBytes+multipartOverheadBytes)

	file, header, err := r.FormFile(documentField)
	if err != nil {
		if tooLarge(err) {
			s.writeTooLarge(w, r)
			return
		}
		s.writeError(w, r, domain.NewError(domain.KindValidation, "Please upload a PDF file in the \"document\" field.", err))
		return
	}
	defer file.Close()

	if header.Size > s.maxDocumentBytes {
		s.writeTooLarge(w, r)
		return
	}

	document, err := io.ReadAll(io.LimitReader(file, s.maxDocumentBytes+1))
	if err != nil {
		s.writeError(w, r, domain.NewError(domain.KindValidation, "Failed to read the uploaded file.", err))
		return
	}
	if int64(len(document)) > s.maxDocumentBytes {
		s.writeTooLarge(w, r)
		return
	}
	if !domain.LooksLikePDF(document) {
		s.writeError(w, r, domain.Errorf(domain.KindValidation, "Please upload a PDF file."))
		return
	}

	outcome, err := s.pipeline.SummarizeDocument(r.Context(), document)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOutcome(w, r, outcome)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, outcome domain.Outcome) {
	paragraphs := outcome.Paragraphs()
	if paragraphs == nil {
		paragraphs = []string{}
	}

	s.writeJSON(w, r, http.StatusOK, summaryResponse{
		Mode:       outcome.Mode,
		Extracted:  outcome.Extracted,
		Summary:    outcome.Summary,
		Paragraphs: paragraphs,
	})
}

func (s *Server) writeTooLarge(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusRequestEntityTooLarge, errorResponse{
		Error: errorBody{
			Kind:    domain.KindValidation,
			Message: "The uploaded file is too large.",
		},
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "Failed to serve request",
			"requestID", requestIDFrom(r.Context()),
			"kind", kind,
			"error", err)
	}

	s.writeJSON(w, r, status, errorResponse{
		Error: errorBody{
			Kind:    kind,
			Message: domain.MessageOf(err),
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WarnContext(r.Context(), "Failed to write response",
			"requestID", requestIDFrom(r.Context()),
			"error", err)
	}
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAnalysis:
		return http.StatusUnprocessableEntity
	case domain.KindRateLimited, domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.KindAuthentication, domain.KindModel:
		return http.StatusBadGateway
	case domain.KindConfiguration, domain.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
