// Package speech holds the recognition and synthesis boundaries of the
// assistant: the events a speech engine produces, the segmenter that turns
// them into utterances, and the gate that serializes spoken output.
package speech

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnsupported      = errors.New("speech: capability unsupported")
	ErrPermissionDenied = errors.New("speech: permission denied")
)

// RecognitionEvent is one partial or final hypothesis for the result slot
// at Index. Later events for the same Index replace earlier ones.
type RecognitionEvent struct {
	Index      int    `json:"index"`
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// Utterance is a finalized piece of user speech.
type Utterance struct {
	Text      string
	WordCount int
}

func NewUtterance(text string) Utterance {
	text = strings.TrimSpace(text)
	return Utterance{Text: text, WordCount: WordCount(text)}
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}

type SourceEventKind int

const (
	SourceResult SourceEventKind = iota
	// SourceEnded is raised when the engine closes the session on its own.
	SourceEnded
	SourceError
)

type SourceEvent struct {
	Kind   SourceEventKind
	Result RecognitionEvent
	Err    error
}

// SpeechSource is a recognition engine. Events must be delivered in
// arrival order on a single channel.
type SpeechSource interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan SourceEvent
}

type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Playback is a single request to the synthesis engine. A nil Voice means
// the engine default.
type Playback struct {
	Text  string  `json:"text"`
	Voice *Voice  `json:"voice,omitempty"`
	Lang  string  `json:"lang"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// SpeechSink is a synthesis engine. Speak is fire-and-forget.
type SpeechSink interface {
	Voices() []Voice
	Speak(p Playback) error
	Cancel()
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Display receives the visual transcript.
type Display interface {
	Show(role, text string)
}
