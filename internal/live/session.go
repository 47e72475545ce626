package live

import (
	"context"
	log "log/slog"
	"sync"

	"shirley/internal/assistant"
	"shirley/internal/speech"
	"shirley/pkg/protocol"
)

// Session adapts one websocket client into the speech boundaries of a
// control loop: the client's recognition engine is the SpeechSource, its
// synthesis engine the SpeechSink, and its chat view the Display.
type Session struct {
	ID string

	ws     *protocol.WebSocket
	loop   *assistant.Loop
	events chan speech.SourceEvent
	log    *log.Logger

	mu     sync.Mutex
	voices []speech.Voice
}

var (
	_ speech.SpeechSource = (*Session)(nil)
	_ speech.SpeechSink   = (*Session)(nil)
	_ speech.Display      = (*Session)(nil)
	_ assistant.Frontend  = (*Session)(nil)
)

func (s *Session) send(m *protocol.Message) {
	if err := s.ws.Write(m); err != nil {
		s.log.Debug("Failed to write", "type", m.Type, "err", err)
	}
}

func (s *Session) Start(context.Context) error {
	s.send(&protocol.Message{Type: protocol.TypeRecognition, Action: protocol.ActionStart})
	return nil
}

func (s *Session) Stop() error {
	s.send(&protocol.Message{Type: protocol.TypeRecognition, Action: protocol.ActionStop})
	return nil
}

func (s *Session) Events() <-chan speech.SourceEvent {
	return s.events
}

func (s *Session) Voices() []speech.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]speech.Voice(nil), s.voices...)
}

func (s *Session) setVoices(vs []protocol.Voice) {
	out := make([]speech.Voice, 0, len(vs))
	for _, v := range vs {
		out = append(out, speech.Voice{Name: v.Name, Lang: v.Lang})
	}
	s.mu.Lock()
	s.voices = out
	s.mu.Unlock()
}

func (s *Session) Speak(p speech.Playback) error {
	m := &protocol.Message{
		Type:  protocol.TypeSpeak,
		Text:  p.Text,
		Lang:  p.Lang,
		Rate:  p.Rate,
		Pitch: p.Pitch,
	}
	if p.Voice != nil {
		m.Voice = &protocol.Voice{Name: p.Voice.Name, Lang: p.Voice.Lang}
	}
	return s.ws.Write(m)
}

func (s *Session) Cancel() {
	s.send(&protocol.Message{Type: protocol.TypeCancelSpeech})
}

func (s *Session) Show(role, text string) {
	s.send(&protocol.Message{Type: protocol.TypeDisplay, Role: role, Text: text})
}

func (s *Session) OpenLink(url string) {
	s.send(&protocol.Message{Type: protocol.TypeOpen, URL: url})
}

func (s *Session) Call(number string) {
	s.send(&protocol.Message{Type: protocol.TypeCall, Number: number})
}

func (s *Session) Chime() {
	s.send(&protocol.Message{Type: protocol.TypeChime})
}

func (s *Session) Status(st assistant.Status) {
	s.send(&protocol.Message{
		Type:                protocol.TypeStatus,
		Listening:           protocol.Bool(st.Listening),
		NaturalConversation: protocol.Bool(st.NaturalConversation),
		Mute:                protocol.Bool(st.Mute),
		LongMemory:          protocol.Bool(st.LongMemory),
	})
}

func (s *Session) Loop() *assistant.Loop {
	return s.loop
}
