package server

import (
	"encoding/json"
	"net/http"
)

// errorBody is the structured error payload returned to clients.
type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, provider string) {
	writeJSON(w, status, errorBody{Code: code, Message: message, Provider: provider})
}
