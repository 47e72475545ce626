package relay

import (
	"encoding/json"

	"shirley/internal/conversation"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message  string              `json:"message"`
	Weather  string              `json:"weather"`
	Contacts string              `json:"contacts"`
	History  []conversation.Turn `json:"history"`
	// Memory is null unless long memory is enabled.
	Memory json.RawMessage `json:"memory"`
}

// ChatResponse carries either Reply and Memory, or Error with a non-2xx
// status.
type ChatResponse struct {
	Reply  string          `json:"reply,omitempty"`
	Memory json.RawMessage `json:"memory,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
