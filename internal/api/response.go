package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studyreward/rewardbook/internal/service"
)

// Response is the JSON envelope of every API response except export.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPresetImmutable):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInUse),
		errors.Is(err, service.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: "failed to encode response", Code: "INTERNAL"})
		return
	}
	writeJSON(w, status, Response{Success: true, Data: raw})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: msg})
}

// writeError hides internal error text from clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !service.IsUserError(err) {
		s.logger.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, Response{Error: "internal error", Code: service.Code(err)})
		return
	}
	writeJSON(w, statusFor(err), Response{Error: err.Error(), Code: service.Code(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Response{Error: msg, Code: "INVALID"})
}
