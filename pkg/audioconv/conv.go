// Package audioconv decodes recorded speech files into the 16 kHz mono
// float32 PCM that whisper expects.
package audioconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const TargetRate = 16000

type Options struct {
	// MaxSamples truncates the output; zero keeps everything.
	MaxSamples int
}

type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatOgg
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatOgg:
		return "ogg"
	default:
		return "unknown"
	}
}

var ErrUnsupported = errors.New("audioconv: unsupported format")

// DecodeFile picks the decoder from the extension, falling back to the
// leading magic bytes.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(ctx, f, filepath.Base(path), opt)
}

func Decode(ctx context.Context, r io.ReadSeeker, name string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := ByExtension(name)
	if format == FormatUnknown {
		var err error
		if format, err = sniff(r); err != nil {
			return nil, err
		}
	}

	var (
		pcm []float32
		err error
	)
	switch format {
	case FormatWAV:
		pcm, err = decodeWAV(r)
	case FormatMP3:
		pcm, err = decodeMP3(r)
	case FormatOgg:
		pcm, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func ByExtension(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga", ".opus":
		return FormatOgg
	default:
		return FormatUnknown
	}
}

func sniff(r io.ReadSeeker) (Format, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, fmt.Errorf("rewind: %w", err)
	}
	switch {
	case string(magic) == "RIFF":
		return FormatWAV, nil
	case string(magic) == "OggS":
		return FormatOgg, nil
	case len(magic) >= 3 && string(magic[:3]) == "ID3":
		return FormatMP3, nil
	case len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	default:
		return FormatUnknown, nil
	}
}
