// Package response writes the admin API's JSON response envelope.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorDetail describes a single field-level validation failure.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorBody is the "error" object nested in every non-2xx response.
type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorResponse is the full JSON body written for non-2xx responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// OK writes data as a 200 response. If data fails to marshal, it falls
// back to a 500 INTERNAL_ERROR response instead of a partially written
// 200 body.
func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// Created writes data as a 201 response, with the same encoding-failure
// fallback as OK.
func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data)
}

// Error writes a code/message error envelope with the given status.
func Error(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// ValidationError writes a 400 VALIDATION_ERROR envelope for a single
// invalid field.
func ValidationError(w http.ResponseWriter, field, issue string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Details: []ErrorDetail{{Field: field, Issue: issue}},
	}})
}

// Unauthorized writes a 401 UNAUTHORIZED envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorBody{
		Code:    "UNAUTHORIZED",
		Message: message,
	}})
}

// writeJSON marshals data before writing the status line, so an
// encoding failure can still produce a clean 500 instead of a
// truncated 200 body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		body, _ = json.Marshal(ErrorResponse{Error: ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "failed to encode response",
		}})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
