package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Fixed client-facing failure bodies. Causes are logged, never sent.
const (
	UnauthorizedBody = "Unauthorized"
	AIErrorBody      = "AI error"
	UpdatedBody      = "Updated"
)

// WriteText writes a plain-text body with the request id header.
func WriteText(w http.ResponseWriter, requestID string, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

// WriteJSON encodes v as the response body with the request id header.
func WriteJSON(w http.ResponseWriter, requestID string, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "request_id", requestID, "error", err)
	}
}

// WriteUnauthorized is the single failure response of every task handler.
func WriteUnauthorized(w http.ResponseWriter, requestID string) {
	WriteText(w, requestID, http.StatusUnauthorized, UnauthorizedBody)
}

// WriteAIError is the single failure response of askAI.
func WriteAIError(w http.ResponseWriter, requestID string) {
	WriteText(w, requestID, http.StatusInternalServerError, AIErrorBody)
}

func WriteUpdated(w http.ResponseWriter, requestID string) {
	WriteText(w, requestID, http.StatusOK, UpdatedBody)
}
