package notify

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV encodes the chime as 16-bit mono PCM.
func WAV() ([]byte, error) {
	samples := Samples()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * 32767)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(SampleRate)},
		Data:           data,
		SourceBitDepth: 16,
	}

	out := &memFile{}
	enc := wav.NewEncoder(out, int(SampleRate), 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}
	return out.buf, nil
}

// Handler serves the chime WAV, rendered once.
func Handler() http.Handler {
	var (
		once sync.Once
		body []byte
		err  error
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { body, err = WAV() })
		if err != nil {
			http.Error(w, "chime unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(body)
	})
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.pos = int(next)
	return next, nil
}
