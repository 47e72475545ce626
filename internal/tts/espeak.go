// Package tts speaks through espeak-ng for the console front end.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_open(void)
{
	if (espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }
	return 0;
}

static int
espeak_start(const char *text, const char *lang, int rate, int pitch)
{
	if (!text || !lang)
	{ return -1; }

	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }
	if (pitch > 0)
	{ espeak_SetParameter(espeakPITCH, pitch, 0); }

	if (espeak_Synth(text, 4096, 0, POS_CHARACTER, 0, espeakCHARS_UTF8, NULL, NULL) != EE_OK)
	{ return -2; }
	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

const (
	baseRate  = 175
	basePitch = 50
)

// Espeak plays through the espeak-ng library's own audio output.
type Espeak struct {
	init sync.Once
	err  error
	mu   sync.Mutex
}

var _ Engine = (*Espeak)(nil)

// Say blocks until text has been spoken or ctx is done, in which case the
// utterance is cut off. Rate and pitch are multipliers of the engine
// defaults; zero keeps the default.
func (e *Espeak) Say(ctx context.Context, text, lang string, rate, pitch float64) error {
	if text == "" {
		return nil
	}
	e.init.Do(func() {
		if rc := C.espeak_open(); rc != 0 {
			e.err = fmt.Errorf("espeak_Initialize failed: %d", int(rc))
		}
	})
	if e.err != nil {
		return e.err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.espeak_start(ctext, clang, C.int(rate*baseRate), C.int(pitch*basePitch)); rc != 0 {
		return fmt.Errorf("espeak_Synth failed: %d", int(rc))
	}

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			C.espeak_Cancel()
		case <-finished:
		}
	}()
	C.espeak_Synchronize()
	close(finished)

	return ctx.Err()
}
