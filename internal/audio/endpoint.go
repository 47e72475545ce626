package audio

import (
	"math"
	"time"
)

// Endpointer decides when a spoken phrase is over: it waits for the first
// frame above the silence threshold, then ends after Silence of quiet.
type Endpointer struct {
	cfg      Config
	speaking bool
	quiet    time.Duration
	total    time.Duration
}

func NewEndpointer(cfg Config) *Endpointer {
	return &Endpointer{cfg: cfg.withDefaults()}
}

// Push consumes one frame. keep reports whether the frame belongs to the
// phrase; done reports that capture should stop.
func (e *Endpointer) Push(frame []float32) (keep, done bool) {
	dur := time.Duration(len(frame)) * time.Second / time.Duration(e.cfg.SampleRate)
	e.total += dur

	if frameRMS(frame) > e.cfg.SilenceRMS {
		e.speaking = true
		e.quiet = 0
		keep = true
	} else if e.speaking {
		e.quiet += dur
		keep = true
		if e.quiet >= e.cfg.Silence {
			done = true
		}
	}

	if e.total >= e.cfg.MaxLength {
		done = true
	}
	return keep, done
}

func (e *Endpointer) Speaking() bool { return e.speaking }

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
