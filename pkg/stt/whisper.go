// Package stt transcribes 16 kHz mono PCM with whisper.cpp.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type Options struct {
	// Language is a whisper language code, or "auto".
	Language      string
	Threads       int
	InitialPrompt string
	BeamSize      int
	SplitOnWord   bool
	Temperature   float32
	Offset        time.Duration
	Duration      time.Duration
}

// DefaultOptions transcribe Hebrew with all cores.
func DefaultOptions() Options {
	return Options{Language: "he"}
}

type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

var ErrNoAudio = errors.New("stt: no audio samples")

type Transcriber struct {
	model whisper.Model
	opt   Options

	// whisper contexts share the model; one transcription at a time.
	mu sync.Mutex
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe returns the recognized text with the transcriber's options.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	res, err := t.TranscribePCM(ctx, pcm, t.opt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (t *Transcriber) TranscribePCM(ctx context.Context, pcm []float32, opt Options) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, ErrNoAudio
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}
	if err := configure(wctx, opt); err != nil {
		return Result{}, err
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var (
		segs  []Segment
		parts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, Segment{Text: s.Text, Start: s.Start, End: s.End})
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}
	return Result{
		Text:     strings.Join(parts, " "),
		Segments: segs,
		Language: lang,
	}, nil
}

func configure(wctx whisper.Context, opt Options) error {
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(false)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.Offset > 0 {
		wctx.SetOffset(opt.Offset)
	}
	if opt.Duration > 0 {
		wctx.SetDuration(opt.Duration)
	}
	if opt.SplitOnWord {
		wctx.SetSplitOnWord(true)
	}
	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}
	return nil
}
