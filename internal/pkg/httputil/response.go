// Package httputil holds the JSON envelope, error mapping and middleware
// shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}

// JSON writes v as-is, without the data envelope.
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes {"data": ...}.
func Success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Data: data})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes {"error": {"message": ...}}.
func Error(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Message: message}})
}

// ValidationError writes a 400 with one FieldError per failed rule, or the
// plain error text when err does not come from the validator.
func ValidationError(w http.ResponseWriter, err error) {
	var details any = err.Error()

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, FieldError{
				Field:   e.Field(),
				Message: e.Tag(),
				Param:   e.Param(),
			})
		}
		details = fields
	}

	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
		Message: "validation error",
		Details: details,
	}})
}
