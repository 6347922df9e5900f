package common

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ConversationType distinguishes one-to-one threads from group threads.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

func (ct ConversationType) String() string {
	return string(ct)
}

func (ct ConversationType) IsValid() bool {
	return ct == ConversationDirect || ct == ConversationGroup
}

// ParseConversationType is case insensitive; anything unknown is reported invalid.
func ParseConversationType(s string) (ConversationType, bool) {
	ct := ConversationType(strings.ToLower(strings.TrimSpace(s)))
	return ct, ct.IsValid()
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}
