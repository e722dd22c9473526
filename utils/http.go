package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the wire shape for every locally-raised failure:
// a machine-readable error plus optional technical details for humans.
type ErrorResponse struct {
	Error            string `json:"error"`
	TechnicalDetails string `json:"technical_details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status and message
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteBadRequest writes a 400 Bad Request response
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized response
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return WriteError(w, http.StatusUnauthorized, message)
}

// WriteInternalServerError writes a 500 Internal Server Error response
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return WriteError(w, http.StatusInternalServerError, message)
}

// WriteUpstreamError writes a proxy failure response carrying both the
// user-facing message and the underlying transport error text.
func WriteUpstreamError(w http.ResponseWriter, status int, message, technicalDetails string) error {
	return WriteJSON(w, status, ErrorResponse{
		Error:            message,
		TechnicalDetails: technicalDetails,
	})
}
