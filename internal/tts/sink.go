package tts

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"shirley/internal/speech"
)

// Engine voices one utterance. Say returns once playback ends; cancelling
// ctx cuts the utterance off.
type Engine interface {
	Say(ctx context.Context, text, lang string, rate, pitch float64) error
}

type EngineFunc func(ctx context.Context, text, lang string, rate, pitch float64) error

func (f EngineFunc) Say(ctx context.Context, text, lang string, rate, pitch float64) error {
	return f(ctx, text, lang, rate, pitch)
}

// Sink plays one utterance at a time on a background worker. A new Speak
// cuts off the utterance playing; Cancel silences it and drops the queue.
type Sink struct {
	voice  string
	engine Engine
	log    *log.Logger

	mu      sync.Mutex
	pending *speech.Playback
	// stops the utterance playing; nil when idle
	stop context.CancelFunc
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

var _ speech.SpeechSink = (*Sink)(nil)

// NewSink speaks with the espeak voice named by voice (e.g. "he"). A nil
// engine uses espeak-ng.
func NewSink(voice string, engine Engine, logger *log.Logger) *Sink {
	if engine == nil {
		engine = &Espeak{}
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Sink{
		voice:  voice,
		engine: engine,
		log:    logger.With("component", "tts"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) Voices() []speech.Voice {
	return []speech.Voice{{Name: "espeak-ng " + s.voice, Lang: s.voice}}
}

func (s *Sink) Speak(p speech.Playback) error {
	s.mu.Lock()
	s.pending = &p
	s.interrupt()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *Sink) Cancel() {
	s.mu.Lock()
	s.pending = nil
	s.interrupt()
	s.mu.Unlock()
}

func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.done)
		s.Cancel()
	})
}

// interrupt must be called with mu held.
func (s *Sink) interrupt() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *Sink) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		p := s.pending
		s.pending = nil
		if p == nil {
			s.mu.Unlock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.mu.Unlock()

		lang := s.voice
		if lang == "" {
			lang = primary(p.Lang)
		}
		err := s.engine.Say(ctx, p.Text, lang, p.Rate, p.Pitch)
		switch {
		case errors.Is(err, context.Canceled):
			s.log.Debug("Playback interrupted", "text", p.Text)
		case err != nil:
			s.log.Warn("Failed to voice out", "err", err)
		}

		s.mu.Lock()
		s.stop = nil
		s.mu.Unlock()
		cancel()
	}
}

// primary reduces a BCP 47 tag like he-IL to the espeak language name.
func primary(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}
