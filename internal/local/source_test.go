package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"shirley/internal/speech"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	return f.text, f.err
}

func phrase(context.Context) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func next(t *testing.T, s *Source) speech.SourceEvent {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return speech.SourceEvent{}
	}
}

func TestSourceReportsFinalThenEnd(t *testing.T) {
	s := NewSource(phrase, fakeTranscriber{text: "  מה השעה "}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ev := next(t, s)
	if ev.Kind != speech.SourceResult || !ev.Result.IsFinal || ev.Result.Transcript != "מה השעה" {
		t.Fatalf("first event = %+v", ev)
	}
	if ev := next(t, s); ev.Kind != speech.SourceEnded {
		t.Fatalf("second event = %+v", ev)
	}

	// A new session uses a new result index.
	s.Start(context.Background())
	if ev := next(t, s); ev.Result.Index != 1 {
		t.Fatalf("index = %d, want 1", ev.Result.Index)
	}
	next(t, s)
}

func TestSourceSilenceEndsWithoutResult(t *testing.T) {
	s := NewSource(func(context.Context) ([]float32, error) { return nil, nil }, fakeTranscriber{text: "x"}, nil)
	s.Start(context.Background())

	if ev := next(t, s); ev.Kind != speech.SourceEnded {
		t.Fatalf("event = %+v, want end", ev)
	}
}

func TestSourceReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewSource(phrase, fakeTranscriber{err: boom}, nil)
	s.Start(context.Background())

	ev := next(t, s)
	if ev.Kind != speech.SourceError || !errors.Is(ev.Err, boom) {
		t.Fatalf("event = %+v", ev)
	}
	if ev := next(t, s); ev.Kind != speech.SourceEnded {
		t.Fatalf("event = %+v, want end", ev)
	}
}

func TestSourceStopIsSilent(t *testing.T) {
	started := make(chan struct{})
	s := NewSource(func(ctx context.Context) ([]float32, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, fakeTranscriber{text: "x"}, nil)

	s.Start(context.Background())
	<-started
	s.Stop()

	select {
	case ev := <-s.Events():
		t.Fatalf("event after stop: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSourceStartWhileRunningIsNoop(t *testing.T) {
	calls := 0
	release := make(chan struct{})
	s := NewSource(func(ctx context.Context) ([]float32, error) {
		calls++
		<-release
		return nil, nil
	}, fakeTranscriber{}, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	close(release)
	next(t, s)

	if calls != 1 {
		t.Fatalf("capture ran %d times", calls)
	}
}
