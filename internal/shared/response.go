package shared

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the JSON envelope returned by form endpoints.
type MessageResponse struct {
	Message  string            `json:"message"`
	Redirect string            `json:"redirect,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes a MessageResponse.
func WriteMessage(w http.ResponseWriter, status int, message, redirect string) {
	WriteJSON(w, status, MessageResponse{Message: message, Redirect: redirect})
}
