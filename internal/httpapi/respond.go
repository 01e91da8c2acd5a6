package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/service"
)

type errorResponse struct {
	Error    string        `json:"error"`
	Failures []failureBody `json:"failures,omitempty"`
}

type failureBody struct {
	ItemID string `json:"item_id"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrState), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError writes err with its mapped status. Publication
// failures carry the per-item list.
func (s *Server) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, code, "internal error")
		return
	}
	body := errorResponse{Error: err.Error()}
	var perr *service.PublishError
	if errors.As(err, &perr) {
		for _, f := range perr.Failures {
			body.Failures = append(body.Failures, failureBody{ItemID: f.ItemID, Code: f.Code, Error: f.Err.Error()})
		}
	}
	respondWithJSON(w, code, body)
}
