package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"shirley/internal/speech"
	"shirley/pkg/protocol"
)

type fakeSink struct {
	spoken  []speech.Playback
	cancels int
}

func (f *fakeSink) Voices() []speech.Voice {
	return []speech.Voice{{Name: "espeak-ng he", Lang: "he"}}
}

func (f *fakeSink) Speak(p speech.Playback) error {
	f.spoken = append(f.spoken, p)
	return nil
}

func (f *fakeSink) Cancel() { f.cancels++ }

type fakeSource struct {
	starts, stops int
}

func (f *fakeSource) Start(context.Context) error       { f.starts++; return nil }
func (f *fakeSource) Stop() error                       { f.stops++; return nil }
func (f *fakeSource) Events() <-chan speech.SourceEvent { return nil }

type harness struct {
	c      *console
	out    *bytes.Buffer
	sink   *fakeSink
	sent   []*protocol.Message
	opened []string
}

func newHarness() *harness {
	h := &harness{out: &bytes.Buffer{}, sink: &fakeSink{}}
	h.c = &console{
		out:   h.out,
		sink:  h.sink,
		chime: func() {},
		send: func(m *protocol.Message) error {
			h.sent = append(h.sent, m)
			return nil
		},
		open: func(target string) error {
			h.opened = append(h.opened, target)
			return nil
		},
	}
	return h
}

func (h *harness) types() []protocol.Type {
	out := make([]protocol.Type, 0, len(h.sent))
	for _, m := range h.sent {
		out = append(out, m.Type)
	}
	return out
}

func equalTypes(a, b []protocol.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTypedLineWaitsForRecognition(t *testing.T) {
	h := newHarness()

	h.c.onLine("מה השעה")
	if want := []protocol.Type{protocol.TypeStart}; !equalTypes(h.types(), want) {
		t.Fatalf("sent %v, want %v", h.types(), want)
	}

	h.c.onServer(context.Background(), &protocol.Message{Type: protocol.TypeRecognition, Action: protocol.ActionStart})

	want := []protocol.Type{protocol.TypeStart, protocol.TypeResult, protocol.TypeEnd}
	if !equalTypes(h.types(), want) {
		t.Fatalf("sent %v, want %v", h.types(), want)
	}
	res := h.sent[1]
	if res.Transcript != " מה השעה" || !res.IsFinal || res.Index != 0 {
		t.Fatalf("result = %+v", res)
	}

	// The session ended with the typed line; the next line starts another.
	h.c.onLine("ביי")
	if last := h.sent[len(h.sent)-1]; last.Type != protocol.TypeStart {
		t.Fatalf("last sent = %v, want start", last.Type)
	}
}

func TestCallNeedsConfirmation(t *testing.T) {
	tests := []struct {
		answer string
		dialed bool
	}{
		{"y", true},
		{"כן", true},
		{"", false},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			h := newHarness()
			h.c.onServer(context.Background(), &protocol.Message{Type: protocol.TypeCall, Number: "0501234567"})
			if !strings.Contains(h.out.String(), "לחייג אל 0501234567?") {
				t.Fatalf("prompt = %q", h.out.String())
			}

			h.c.onLine(tt.answer)
			dialed := len(h.opened) == 1 && h.opened[0] == "tel:0501234567"
			if dialed != tt.dialed {
				t.Fatalf("opened %v, want dialed=%v", h.opened, tt.dialed)
			}
			if len(h.sent) != 0 {
				t.Fatalf("answer was sent to the daemon: %v", h.types())
			}
		})
	}
}

func TestServerOutput(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.c.onServer(ctx, &protocol.Message{Type: protocol.TypeDisplay, Role: speech.RoleAssistant, Text: "שלום"})
	h.c.onServer(ctx, &protocol.Message{
		Type: protocol.TypeSpeak, Text: "שלום", Lang: "he-IL", Rate: 0.95, Pitch: 1.1,
		Voice: &protocol.Voice{Name: "espeak-ng he", Lang: "he"},
	})
	h.c.onServer(ctx, &protocol.Message{Type: protocol.TypeCancelSpeech})
	h.c.onServer(ctx, &protocol.Message{Type: protocol.TypeOpen, URL: "https://youtube.com"})

	if got := h.out.String(); got != "שירלי: שלום\n" {
		t.Errorf("display = %q", got)
	}
	if len(h.sink.spoken) != 1 || h.sink.spoken[0].Voice == nil || h.sink.spoken[0].Rate != 0.95 {
		t.Errorf("spoken = %+v", h.sink.spoken)
	}
	if h.sink.cancels != 1 {
		t.Errorf("cancels = %d", h.sink.cancels)
	}
	if len(h.opened) != 1 || h.opened[0] != "https://youtube.com" {
		t.Errorf("opened = %v", h.opened)
	}
}

func TestLocalSourceFollowsRecognition(t *testing.T) {
	h := newHarness()
	src := &fakeSource{}
	h.c.src = src
	ctx := context.Background()

	h.c.onServer(ctx, &protocol.Message{Type: protocol.TypeRecognition, Action: protocol.ActionStart})
	h.c.onServer(ctx, &protocol.Message{Type: protocol.TypeRecognition, Action: protocol.ActionStop})
	if src.starts != 1 || src.stops != 1 {
		t.Fatalf("starts %d stops %d", src.starts, src.stops)
	}

	// Typed text is ignored while the microphone is the source.
	h.c.onLine("שלום")
	if len(h.sent) != 0 {
		t.Fatalf("sent %v", h.types())
	}

	h.c.onSource(speech.SourceEvent{Kind: speech.SourceError, Err: speech.ErrPermissionDenied})
	if m := h.sent[0]; m.Type != protocol.TypeError || m.Code != protocol.CodePermissionDenied {
		t.Fatalf("sent %+v", m)
	}
}

func TestCommands(t *testing.T) {
	h := newHarness()
	for _, line := range []string{"/stop", "/mode", "/forget", "/contacts"} {
		h.c.onLine(line)
	}
	want := []protocol.Type{protocol.TypeStop, protocol.TypeToggleMode, protocol.TypeClearMemory, protocol.TypeContactsUnsupported}
	if !equalTypes(h.types(), want) {
		t.Fatalf("sent %v, want %v", h.types(), want)
	}

	h.sent = nil
	h.c.contacts = []protocol.Contact{{Name: "אמא", Phone: "0501111111"}}
	h.c.onLine("/contacts")
	if m := h.sent[0]; m.Type != protocol.TypeContacts || len(m.Contacts) != 1 {
		t.Fatalf("sent %+v", m)
	}
}

func TestHelloSendsVoices(t *testing.T) {
	h := newHarness()
	h.c.hello()
	if len(h.sent) != 1 || h.sent[0].Type != protocol.TypeVoices || h.sent[0].Voices[0].Lang != "he" {
		t.Fatalf("sent %+v", h.sent)
	}
}

func TestHelloSendsLocation(t *testing.T) {
	h := newHarness()
	h.c.location = &[2]float64{32.08, 34.78}
	h.c.hello()
	if !equalTypes(h.types(), []protocol.Type{protocol.TypeVoices, protocol.TypeLocation}) {
		t.Fatalf("sent %v", h.types())
	}
	m := h.sent[1]
	if m.Lat == nil || m.Lon == nil || *m.Lat != 32.08 || *m.Lon != 34.78 {
		t.Fatalf("location %+v", m)
	}
}
