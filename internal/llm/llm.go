// Package llm builds the assistant's instruction preamble and sends chat
// completions to the model backend.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrNoChoices = errors.New("llm: no choices in response")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer performs one chat completion and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Model       string
	Temperature float64
}

func DefaultOptions() Options {
	return Options{Model: "gpt-4o-mini", Temperature: 0.4}
}
