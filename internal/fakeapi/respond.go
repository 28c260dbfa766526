package fakeapi

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse mirrors the backend's error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Detail: message})
}

func respondJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
