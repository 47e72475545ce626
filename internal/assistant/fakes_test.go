package assistant

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"shirley/internal/conversation"
	"shirley/internal/relay"
	"shirley/internal/speech"
)

type fakeSource struct {
	events chan speech.SourceEvent

	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan speech.SourceEvent)}
}

func (s *fakeSource) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeSource) Events() <-chan speech.SourceEvent { return s.events }

func (s *fakeSource) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

type fakeSink struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (s *fakeSink) Voices() []speech.Voice {
	return []speech.Voice{{Name: "Google עברית", Lang: "he-IL"}}
}

func (s *fakeSink) Speak(p speech.Playback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, p.Text)
	return nil
}

func (s *fakeSink) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *fakeSink) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.spoken)
}

type line struct {
	role string
	text string
}

type recDisplay struct {
	mu    sync.Mutex
	lines []line
}

func (d *recDisplay) Show(role, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line{role, text})
}

func (d *recDisplay) count(text string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, l := range d.lines {
		if l.text == text {
			n++
		}
	}
	return n
}

func (d *recDisplay) has(role, text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.lines, line{role, text})
}

type fakeFront struct {
	mu       sync.Mutex
	links    []string
	calls    []string
	chimes   int
	statuses []Status
}

func (f *fakeFront) OpenLink(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, url)
}

func (f *fakeFront) Call(number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, number)
}

func (f *fakeFront) Chime() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chimes++
}

func (f *fakeFront) Status(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *fakeFront) chimeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chimes
}

func (f *fakeFront) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeFront) lastStatus() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return Status{}
	}
	return f.statuses[len(f.statuses)-1]
}

type memStore struct {
	mu       sync.Mutex
	settings conversation.Settings
	memory   json.RawMessage
	saves    int
}

func (s *memStore) LoadSettings() conversation.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *memStore) SaveSettings(st conversation.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
	s.saves++
	return nil
}

func (s *memStore) LoadMemory() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory
}

func (s *memStore) SaveMemory(m json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = m
	return nil
}

func (s *memStore) ClearMemory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = nil
	return nil
}

func (s *memStore) current() (conversation.Settings, json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.memory
}

type fakeTransport struct {
	mu    sync.Mutex
	reqs  []relay.ChatRequest
	reply string
	mem   json.RawMessage
	err   error
}

func (f *fakeTransport) Chat(_ context.Context, req relay.ChatRequest) (relay.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return relay.ChatResponse{}, f.err
	}
	return relay.ChatResponse{Reply: f.reply, Memory: f.mem}, nil
}

func (f *fakeTransport) requests() []relay.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reqs)
}
