package speech

import (
	"strings"
	"time"

	"shirley/internal/clock"
)

const (
	ShortPhraseWait = 2200 * time.Millisecond
	LongPhraseWait  = 1600 * time.Millisecond
	LongPhraseWords = 4

	// RestartDelay bridges engine-imposed session limits.
	RestartDelay = 400 * time.Millisecond
)

// SilenceTimeout picks the silence window for the text heard so far.
func SilenceTimeout(text string) time.Duration {
	if WordCount(text) > LongPhraseWords {
		return LongPhraseWait
	}
	return ShortPhraseWait
}

type fragment struct {
	index int
	text  string
	final bool
}

// Segmenter accumulates recognition events and emits an Utterance once
// the speaker has been silent for SilenceTimeout of the current text.
type Segmenter struct {
	clock    clock.Clock
	dispatch func(func())
	emit     func(Utterance)

	frags  []fragment
	active string
	timer  clock.Timer
	gen    uint64
}

type SegmenterOption func(*Segmenter)

// WithDispatch routes timer expiry through d, so the owner can run it on
// its own goroutine.
func WithDispatch(d func(func())) SegmenterOption {
	return func(s *Segmenter) { s.dispatch = d }
}

func NewSegmenter(c clock.Clock, emit func(Utterance), opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		clock:    c,
		emit:     emit,
		dispatch: func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push records ev and restarts the silence window. Events with blank
// transcripts are dropped and leave the window untouched.
func (s *Segmenter) Push(ev RecognitionEvent) bool {
	if strings.TrimSpace(ev.Transcript) == "" {
		return false
	}

	s.store(ev)
	s.active = s.compose()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(SilenceTimeout(s.active), func() {
		s.dispatch(func() { s.fire(gen) })
	})

	return true
}

// Pending returns the text that would be emitted if the window closed now.
func (s *Segmenter) Pending() string {
	return s.active
}

// Reset drops the accumulation and cancels a pending emission.
func (s *Segmenter) Reset() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.frags = s.frags[:0]
	s.active = ""
}

func (s *Segmenter) store(ev RecognitionEvent) {
	f := fragment{index: ev.Index, text: ev.Transcript, final: ev.IsFinal}

	for i := len(s.frags) - 1; i >= 0; i-- {
		if s.frags[i].index == ev.Index {
			s.frags[i] = f
			return
		}
		if s.frags[i].index < ev.Index {
			s.frags = append(s.frags, fragment{})
			copy(s.frags[i+2:], s.frags[i+1:])
			s.frags[i+1] = f
			return
		}
	}
	s.frags = append([]fragment{f}, s.frags...)
}

func (s *Segmenter) compose() string {
	var final, interim strings.Builder
	for _, f := range s.frags {
		if f.final {
			final.WriteString(f.text)
		} else {
			interim.WriteString(f.text)
		}
	}
	if final.Len() > 0 {
		return strings.TrimSpace(final.String())
	}
	return strings.TrimSpace(interim.String())
}

func (s *Segmenter) fire(gen uint64) {
	if gen != s.gen {
		return
	}
	text := s.active
	s.timer = nil
	s.frags = s.frags[:0]
	s.active = ""

	if text == "" {
		return
	}
	s.emit(NewUtterance(text))
}
