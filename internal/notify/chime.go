// Package notify renders the timer chime: a short synthesized two-note
// tone that the console plays locally and the daemon serves as WAV.
package notify

import (
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

const SampleRate beep.SampleRate = 44100

type note struct {
	freq float64
	dur  time.Duration
}

var chime = []note{
	{freq: 880, dur: 150 * time.Millisecond},
	{freq: 1320, dur: 250 * time.Millisecond},
}

const amplitude = 0.4

// Samples returns the chime as mono samples in [-1, 1].
func Samples() []float64 {
	var out []float64
	for _, n := range chime {
		count := SampleRate.N(n.dur)
		for i := 0; i < count; i++ {
			t := float64(i) / float64(SampleRate)
			env := math.Exp(-4 * float64(i) / float64(count))
			out = append(out, amplitude*env*math.Sin(2*math.Pi*n.freq*t))
		}
	}
	return out
}

// Streamer plays the chime once.
func Streamer() beep.Streamer {
	samples := Samples()
	pos := 0
	return beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(samples) {
			buf[n][0] = samples[pos]
			buf[n][1] = samples[pos]
			n++
			pos++
		}
		return n, true
	})
}

var (
	initOnce sync.Once
	initErr  error
)

// Play blocks until the chime has been played on the default output.
func Play() error {
	initOnce.Do(func() {
		initErr = speaker.Init(SampleRate, SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return initErr
	}

	done := make(chan bool)
	speaker.Play(beep.Seq(Streamer(), beep.Callback(func() {
		done <- true
	})))
	<-done
	return nil
}
