package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

// Client to server.
const (
	TypeStart               Type = "start"
	TypeStop                Type = "stop"
	TypeResult              Type = "result"
	TypeEnd                 Type = "end"
	TypeError               Type = "error"
	TypeVoices              Type = "voices"
	TypeContacts            Type = "contacts"
	TypeContactsUnsupported Type = "contacts_unsupported"
	TypeLocation            Type = "location"
	TypeSettings            Type = "settings"
	TypeToggleMode          Type = "toggle_mode"
	TypeClearMemory         Type = "clear_memory"
)

// Server to client.
const (
	TypeDisplay      Type = "display"
	TypeSpeak        Type = "speak"
	TypeCancelSpeech Type = "cancel_speech"
	TypeRecognition  Type = "recognition"
	TypeStatus       Type = "status"
	TypeCall         Type = "call"
	TypeOpen         Type = "open"
	TypeChime        Type = "chime"
)

// Error codes carried by TypeError.
const (
	CodePermissionDenied = "permission-denied"
	CodeUnsupported      = "unsupported"
)

// Recognition actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

var known = map[Type]bool{
	TypeStart: true, TypeStop: true, TypeResult: true, TypeEnd: true,
	TypeError: true, TypeVoices: true, TypeContacts: true,
	TypeContactsUnsupported: true, TypeLocation: true, TypeSettings: true,
	TypeToggleMode: true, TypeClearMemory: true,
	TypeDisplay: true, TypeSpeak: true, TypeCancelSpeech: true,
	TypeRecognition: true, TypeStatus: true, TypeCall: true, TypeOpen: true,
	TypeChime: true,
}

var ErrUnknownType = errors.New("protocol: unknown message type")

type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Message is the single envelope of the live session. Only the fields of
// its Type are set.
type Message struct {
	Type Type `json:"type"`

	// result
	Index      int    `json:"index,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	IsFinal    bool   `json:"isFinal,omitempty"`

	// error
	Code string `json:"code,omitempty"`

	// voices, contacts
	Voices   []Voice   `json:"voices,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`

	// location
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// settings, status
	Listening           *bool `json:"listening,omitempty"`
	NaturalConversation *bool `json:"naturalConversation,omitempty"`
	Mute                *bool `json:"mute,omitempty"`
	LongMemory          *bool `json:"longMemory,omitempty"`

	// display, speak
	Role  string  `json:"role,omitempty"`
	Text  string  `json:"text,omitempty"`
	Voice *Voice  `json:"voice,omitempty"`
	Lang  string  `json:"lang,omitempty"`
	Rate  float64 `json:"rate,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`

	// recognition
	Action string `json:"action,omitempty"`

	// call, open
	Number string `json:"number,omitempty"`
	URL    string `json:"url,omitempty"`
}

func Parse(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if !known[m.Type] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return &m, nil
}

func Bool(b bool) *bool { return &b }

func Float(f float64) *float64 { return &f }
