// Package audio captures one spoken phrase from the default microphone.
package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

type Config struct {
	SampleRate int
	// FrameSize is in samples; 320 at 16 kHz is 20ms.
	FrameSize  int
	SilenceRMS float64
	Silence    time.Duration
	MaxLength  time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  320,
		SilenceRMS: 0.015,
		Silence:    800 * time.Millisecond,
		MaxLength:  10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.FrameSize <= 0 {
		c.FrameSize = d.FrameSize
	}
	if c.SilenceRMS <= 0 {
		c.SilenceRMS = d.SilenceRMS
	}
	if c.Silence <= 0 {
		c.Silence = d.Silence
	}
	if c.MaxLength <= 0 {
		c.MaxLength = d.MaxLength
	}
	return c
}

type Recorder struct {
	cfg Config
}

func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg.withDefaults()}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record returns mono float32 PCM at the configured rate once the phrase
// ends, the maximum length passes, or ctx is cancelled. A cancelled capture
// returns ctx.Err().
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.cfg.FrameSize)
	out := make([]float32, 0, r.cfg.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	ep := NewEndpointer(r.cfg)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}

		keep, done := ep.Push(buf)
		if keep {
			out = append(out, buf...)
		}
		if done {
			return out, nil
		}
	}
}
