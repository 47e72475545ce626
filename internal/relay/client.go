// Package relay is the client side of the chat backend: it packs a query
// with its context, sends it, and parses directives out of the reply.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"

	"shirley/internal/conversation"
)

const (
	CommunicationError = "שגיאת תקשורת עם השרת."
	EmptyReply         = "לא הצלחתי לחשוב על תשובה כרגע."
)

const weatherMention = "מזג אוויר"

// Snapshot is the session context captured when a query starts. It must
// not alias state the control loop keeps mutating.
type Snapshot struct {
	Settings conversation.Settings
	History  []conversation.Turn
	Memory   json.RawMessage
	Contacts []Contact
}

type Result struct {
	// Reply is the raw model reply, tags included.
	Reply string
	Text  string
	// CallNumber holds the digits of a call directive, if any.
	CallNumber string
	// Memory is set only when long memory is enabled and the backend
	// returned an object.
	Memory json.RawMessage
}

type Client struct {
	transport Transport
	weather   func(context.Context) string
	log       *log.Logger
}

// NewClient returns a Client sending through t. weather is consulted only
// for queries that mention the weather and may be nil.
func NewClient(t Transport, weather func(context.Context) string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{transport: t, weather: weather, log: logger.With("component", "relay")}
}

func (c *Client) Request(ctx context.Context, text string, snap Snapshot) ChatRequest {
	req := ChatRequest{
		Message:  text,
		Contacts: SummarizeContacts(snap.Contacts),
		History:  lastTurns(snap.History, conversation.MaxHistory),
	}
	if c.weather != nil && strings.Contains(text, weatherMention) {
		req.Weather = c.weather(ctx)
	}
	if snap.Settings.LongMemory && len(snap.Memory) > 0 {
		req.Memory = snap.Memory
	}
	return req
}

func (c *Client) Query(ctx context.Context, text string, snap Snapshot) (Result, error) {
	req := c.Request(ctx, text, snap)

	c.log.Debug("Sending query", "text", text, "history", len(req.History))

	resp, err := c.transport.Chat(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("chat: %w", err)
	}

	raw := resp.Reply
	if strings.TrimSpace(raw) == "" {
		raw = EmptyReply
	}

	parsed := ParseReply(raw)
	res := Result{Reply: raw, Text: parsed.Text, CallNumber: parsed.CallNumber}
	if snap.Settings.LongMemory && hasObject(resp.Memory) {
		res.Memory = resp.Memory
	}
	return res, nil
}

type Reply struct {
	Text       string
	CallNumber string
}

var (
	callRe = regexp.MustCompile(`\[CALL:(.*?)\]`)
	tagRe  = regexp.MustCompile(`\[.*?\]`)
)

// ParseReply strips every bracketed tag from raw and extracts the digits of
// the first call directive.
func ParseReply(raw string) Reply {
	var r Reply
	if m := callRe.FindStringSubmatch(raw); m != nil {
		r.CallNumber = digits(m[1])
	}
	r.Text = strings.TrimSpace(tagRe.ReplaceAllString(raw, ""))
	return r
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SummarizeContacts flattens contacts to "name:phone, name:phone".
func SummarizeContacts(cs []Contact) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.Name+":"+c.Phone)
	}
	return strings.Join(parts, ", ")
}

func lastTurns(h []conversation.Turn, n int) []conversation.Turn {
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]conversation.Turn, len(h))
	copy(out, h)
	return out
}

func hasObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
