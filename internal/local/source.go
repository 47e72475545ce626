// Package local runs recognition on this machine: each Start captures one
// phrase, transcribes it, and reports it as a single final result followed
// by the end of the session.
package local

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"shirley/internal/speech"
)

// Capture records one phrase. It returns when the phrase ends or ctx is
// cancelled. Empty PCM means nothing was said.
type Capture func(ctx context.Context) ([]float32, error)

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Source struct {
	capture Capture
	tr      Transcriber
	log     *log.Logger
	events  chan speech.SourceEvent

	mu     sync.Mutex
	cancel context.CancelFunc
	index  int
}

var _ speech.SpeechSource = (*Source)(nil)

func NewSource(capture Capture, tr Transcriber, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	return &Source{
		capture: capture,
		tr:      tr,
		log:     logger.With("component", "local-source"),
		events:  make(chan speech.SourceEvent, 8),
	}
}

func (s *Source) Events() <-chan speech.SourceEvent {
	return s.events
}

// Start is a no-op while a session is already running.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	index := s.index
	s.index++

	go s.session(ctx, index)
	return nil
}

// Stop abandons the running session without reporting anything more.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *Source) session(ctx context.Context, index int) {
	text, err := s.recognize(ctx)

	s.mu.Lock()
	stopped := ctx.Err() != nil
	if !stopped {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	if stopped {
		return
	}

	switch {
	case err != nil:
		s.log.Warn("Failed to recognize", "err", err)
		s.events <- speech.SourceEvent{Kind: speech.SourceError, Err: err}
	case text != "":
		s.log.Debug("Recognized", "text", text)
		s.events <- speech.SourceEvent{
			Kind:   speech.SourceResult,
			Result: speech.RecognitionEvent{Index: index, Transcript: text, IsFinal: true},
		}
	}
	s.events <- speech.SourceEvent{Kind: speech.SourceEnded}
}

func (s *Source) recognize(ctx context.Context) (string, error) {
	pcm, err := s.capture(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", nil
		}
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}
	text, err := s.tr.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
