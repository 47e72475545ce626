package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"

	"shirley/internal/speech"
	"shirley/pkg/protocol"
)

// console mirrors one live session in a terminal. All methods run on the
// main goroutine.
type console struct {
	out   io.Writer
	send  func(*protocol.Message) error
	sink  speech.SpeechSink
	src   speech.SpeechSource
	chime func()
	open  func(target string) error
	// nil when no address book was given
	contacts []protocol.Contact
	// lat, lon; nil when not configured
	location *[2]float64

	listening bool
	// typed lines waiting for the daemon to start recognition
	pending []string
	// number waiting for a yes/no answer
	confirm string
	index   int
}

func (c *console) hello() {
	voices := c.sink.Voices()
	vs := make([]protocol.Voice, 0, len(voices))
	for _, v := range voices {
		vs = append(vs, protocol.Voice{Name: v.Name, Lang: v.Lang})
	}
	c.send(&protocol.Message{Type: protocol.TypeVoices, Voices: vs})
	if c.location != nil {
		c.send(&protocol.Message{
			Type: protocol.TypeLocation,
			Lat:  protocol.Float(c.location[0]),
			Lon:  protocol.Float(c.location[1]),
		})
	}
}

func (c *console) syncContacts() {
	if c.contacts == nil {
		c.send(&protocol.Message{Type: protocol.TypeContactsUnsupported, Code: protocol.CodeUnsupported})
		return
	}
	c.send(&protocol.Message{Type: protocol.TypeContacts, Contacts: c.contacts})
}

func (c *console) onServer(ctx context.Context, m *protocol.Message) {
	switch m.Type {
	case protocol.TypeDisplay:
		fmt.Fprintf(c.out, "%s: %s\n", label(m.Role), m.Text)
	case protocol.TypeSpeak:
		p := speech.Playback{Text: m.Text, Lang: m.Lang, Rate: m.Rate, Pitch: m.Pitch}
		if m.Voice != nil {
			p.Voice = &speech.Voice{Name: m.Voice.Name, Lang: m.Voice.Lang}
		}
		if err := c.sink.Speak(p); err != nil {
			log.Warn("Failed to speak", "err", err)
		}
	case protocol.TypeCancelSpeech:
		c.sink.Cancel()
	case protocol.TypeRecognition:
		c.recognition(ctx, m.Action)
	case protocol.TypeStatus:
		log.Debug("Status",
			"listening", deref(m.Listening),
			"natural", deref(m.NaturalConversation),
			"mute", deref(m.Mute),
			"memory", deref(m.LongMemory))
	case protocol.TypeCall:
		c.confirm = m.Number
		fmt.Fprintf(c.out, "לחייג אל %s? [y/N] ", m.Number)
	case protocol.TypeOpen:
		if err := c.open(m.URL); err != nil {
			log.Warn("Failed to open link", "url", m.URL, "err", err)
		}
	case protocol.TypeChime:
		go c.chime()
	}
}

func (c *console) recognition(ctx context.Context, action string) {
	switch action {
	case protocol.ActionStart:
		c.listening = true
		if c.src != nil {
			if err := c.src.Start(ctx); err != nil {
				c.onSource(speech.SourceEvent{Kind: speech.SourceError, Err: err})
			}
			return
		}
		lines := c.pending
		c.pending = nil
		for _, line := range lines {
			c.result(line)
		}
	case protocol.ActionStop:
		c.listening = false
		if c.src != nil {
			c.src.Stop()
		}
	}
}

// onLine handles one line typed on stdin.
func (c *console) onLine(line string) {
	line = strings.TrimSpace(line)

	if c.confirm != "" {
		number := c.confirm
		c.confirm = ""
		if answer := strings.ToLower(line); answer == "y" || answer == "yes" || answer == "כן" {
			if err := c.open("tel:" + number); err != nil {
				log.Warn("Failed to dial", "number", number, "err", err)
			}
		}
		return
	}

	switch line {
	case "":
		return
	case "/start":
		c.send(&protocol.Message{Type: protocol.TypeStart})
		return
	case "/stop":
		c.send(&protocol.Message{Type: protocol.TypeStop})
		return
	case "/mode":
		c.send(&protocol.Message{Type: protocol.TypeToggleMode})
		return
	case "/forget":
		c.send(&protocol.Message{Type: protocol.TypeClearMemory})
		return
	case "/contacts":
		c.syncContacts()
		return
	}

	if c.src != nil {
		return
	}
	if c.listening {
		c.result(line)
		return
	}
	c.pending = append(c.pending, line)
	c.send(&protocol.Message{Type: protocol.TypeStart})
}

// result reports typed text as one final recognition result, followed by
// the end of the recognition session.
func (c *console) result(text string) {
	c.onSource(speech.SourceEvent{
		Kind:   speech.SourceResult,
		Result: speech.RecognitionEvent{Index: c.index, Transcript: text, IsFinal: true},
	})
	c.index++
	c.onSource(speech.SourceEvent{Kind: speech.SourceEnded})
}

func (c *console) onSource(ev speech.SourceEvent) {
	switch ev.Kind {
	case speech.SourceResult:
		// Fragments are joined without separators upstream.
		c.send(&protocol.Message{
			Type:       protocol.TypeResult,
			Index:      ev.Result.Index,
			Transcript: " " + ev.Result.Transcript,
			IsFinal:    ev.Result.IsFinal,
		})
	case speech.SourceEnded:
		c.listening = false
		c.send(&protocol.Message{Type: protocol.TypeEnd})
	case speech.SourceError:
		c.send(&protocol.Message{Type: protocol.TypeError, Code: errorCode(ev.Err)})
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, speech.ErrPermissionDenied):
		return protocol.CodePermissionDenied
	case errors.Is(err, speech.ErrUnsupported):
		return protocol.CodeUnsupported
	default:
		return "audio-capture"
	}
}

func label(role string) string {
	if role == speech.RoleUser {
		return "את/ה"
	}
	return "שירלי"
}

func deref(b *bool) bool {
	return b != nil && *b
}
