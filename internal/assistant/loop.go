// Package assistant runs the speech-interaction control loop of one
// session. Everything the loop owns is touched from a single goroutine;
// timers, network replies and external commands are funnelled into it
// through an inbox.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"

	"shirley/internal/clock"
	"shirley/internal/command"
	"shirley/internal/conversation"
	"shirley/internal/relay"
	"shirley/internal/speech"
	"shirley/internal/timer"
	"shirley/internal/weather"
)

const (
	queryTimeout   = 60 * time.Second
	weatherTimeout = 10 * time.Second
	inboxSize      = 64
)

type Phase int

const (
	Idle Phase = iota
	Listening
	Classifying
	Querying
)

func (p Phase) String() string {
	switch p {
	case Listening:
		return "listening"
	case Classifying:
		return "classifying"
	case Querying:
		return "querying"
	default:
		return "idle"
	}
}

type Status struct {
	Listening bool `json:"listening"`
	conversation.Settings
}

// Frontend receives the side effects a session produces besides text and
// speech.
type Frontend interface {
	OpenLink(url string)
	// Call asks the user to confirm dialling number.
	Call(number string)
	Chime()
	Status(Status)
}

// Store persists settings and long memory. Failures are never surfaced to
// the user.
type Store interface {
	LoadSettings() conversation.Settings
	SaveSettings(conversation.Settings) error
	LoadMemory() json.RawMessage
	SaveMemory(json.RawMessage) error
	ClearMemory() error
}

type WeatherService interface {
	Describe(ctx context.Context, loc *weather.Location) string
}

type Deps struct {
	// Source may be nil when recognition is unavailable.
	Source speech.SpeechSource
	// Sink may be nil when synthesis is unavailable.
	Sink       speech.SpeechSink
	Display    speech.Display
	Frontend   Frontend
	Transport  relay.Transport
	Store      Store
	Weather    WeatherService
	Location   *weather.Location
	Classifier *command.Classifier
	Gate       speech.GateConfig
	Clock      clock.Clock
	Logger     *log.Logger
}

type Loop struct {
	src       speech.SpeechSource
	display   speech.Display
	front     Frontend
	store     Store
	weather   WeatherService
	location  atomic.Pointer[weather.Location]
	classify  *command.Classifier
	relay     *relay.Client
	clock     clock.Clock
	log       *log.Logger
	gate      *speech.Gate
	segmenter *speech.Segmenter
	countdown *timer.Countdown

	inbox chan func()
	done  chan struct{}
	ctx   context.Context

	// Loop goroutine only.
	phase      Phase
	listening  bool
	inflight   int
	settings   conversation.Settings
	state      *conversation.State
	contacts   []relay.Contact
	restart    clock.Timer
	restartGen uint64
}

func New(d Deps) *Loop {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Frontend == nil {
		d.Frontend = nopFrontend{}
	}
	if d.Display == nil {
		d.Display = nopDisplay{}
	}
	if d.Classifier == nil {
		d.Classifier = command.NewClassifier(command.DefaultConfig(), command.DefaultRules())
	}
	if d.Gate.Lang == "" {
		d.Gate = speech.DefaultGateConfig()
	}

	l := &Loop{
		src:      d.Source,
		display:  d.Display,
		front:    d.Frontend,
		store:    d.Store,
		weather:  d.Weather,
		classify: d.Classifier,
		clock:    d.Clock,
		log:      d.Logger.With("component", "assistant"),
		inbox:    make(chan func(), inboxSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		state:    conversation.NewState(),
		settings: conversation.DefaultSettings(),
	}
	if d.Store != nil {
		l.settings = d.Store.LoadSettings()
	}
	l.location.Store(d.Location)

	l.relay = relay.NewClient(d.Transport, l.lookupWeather, d.Logger)
	l.gate = speech.NewGate(d.Sink, d.Display, func() bool { return l.settings.Mute }, d.Gate, d.Logger)
	l.segmenter = speech.NewSegmenter(d.Clock, l.onUtterance, speech.WithDispatch(l.dispatch))
	l.countdown = timer.New(d.Clock, l.onTimerExpired, timer.WithDispatch(l.dispatch))

	return l
}

// Run processes recognition events and dispatched work until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.ctx = ctx

	var events <-chan speech.SourceEvent
	if l.src != nil {
		events = l.src.Events()
	}

	l.pushStatus()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case f := <-l.inbox:
			f()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.onSourceEvent(ev)
		}
	}
}

func (l *Loop) dispatch(f func()) {
	select {
	case l.inbox <- f:
	case <-l.done:
	}
}

// call runs f on the loop goroutine and waits for it. It reports false if
// the loop has already stopped.
func (l *Loop) call(f func()) bool {
	ran := make(chan struct{})
	select {
	case l.inbox <- func() { f(); close(ran) }:
	case <-l.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}

// StartListening returns once the loop has acted on it, so recognition
// events the caller delivers afterwards are seen in order.
func (l *Loop) StartListening() { l.call(l.startListening) }

func (l *Loop) StopListening() { l.call(func() { l.stopListening(true) }) }

func (l *Loop) SetMute(on bool) {
	l.dispatch(func() {
		l.updateSettings(func(s *conversation.Settings) { s.Mute = on })
	})
}

// UpdateSettings applies f to the session settings and persists the result.
func (l *Loop) UpdateSettings(f func(*conversation.Settings)) {
	l.dispatch(func() { l.updateSettings(f) })
}

func (l *Loop) ToggleMode() {
	l.dispatch(func() {
		on := !l.settings.NaturalConversation
		l.updateSettings(func(s *conversation.Settings) { s.NaturalConversation = on })
	})
}

func (l *Loop) ClearMemory() {
	l.dispatch(func() {
		if l.store != nil {
			if err := l.store.ClearMemory(); err != nil {
				l.log.Debug("Failed to clear memory", "err", err)
			}
		}
		l.display.Show(speech.RoleAssistant, msgMemoryCleared)
	})
}

func (l *Loop) SetContacts(cs []relay.Contact) {
	l.dispatch(func() {
		l.contacts = append([]relay.Contact(nil), cs...)
		l.gate.Say(msgContactsShown, msgContactsSpoken)
	})
}

// ContactsFailed reports that the client could not provide contacts.
func (l *Loop) ContactsFailed(err error) {
	l.dispatch(func() {
		if errors.Is(err, speech.ErrPermissionDenied) {
			l.gate.Say(msgContactsDenied, msgContactsNoPerm)
			return
		}
		l.gate.Speak(msgContactsMissing)
	})
}

func (l *Loop) SetLocation(loc weather.Location) {
	l.location.Store(&loc)
}

func (l *Loop) Status() Status {
	var st Status
	if !l.call(func() { st = l.status() }) {
		return Status{}
	}
	return st
}

func (l *Loop) Phase() Phase {
	var p Phase
	l.call(func() { p = l.phase })
	return p
}

func (l *Loop) startListening() {
	if l.listening {
		return
	}
	if l.src == nil {
		l.display.Show(speech.RoleAssistant, msgNoRecognition)
		return
	}
	if err := l.src.Start(l.ctx); err != nil {
		l.onSourceError(err)
		return
	}
	l.listening = true
	l.settle()
	l.display.Show(speech.RoleAssistant, msgListening)
	l.pushStatus()
}

func (l *Loop) stopListening(announce bool) {
	if !l.listening {
		return
	}
	l.listening = false
	l.cancelRestart()
	l.segmenter.Reset()
	if err := l.src.Stop(); err != nil {
		l.log.Debug("Failed to stop recognition", "err", err)
	}
	l.settle()
	if announce {
		l.display.Show(speech.RoleAssistant, msgStopped)
	}
	l.pushStatus()
}

// engineEnded closes a session the engine ended on its own. A pending
// silence window is kept so the last phrase is still handled.
func (l *Loop) engineEnded() {
	l.listening = false
	l.cancelRestart()
	l.settle()
	l.pushStatus()
}

func (l *Loop) onSourceEvent(ev speech.SourceEvent) {
	switch ev.Kind {
	case speech.SourceResult:
		if !l.listening {
			return
		}
		r := ev.Result
		if r.IsFinal && strings.TrimSpace(r.Transcript) != "" {
			l.display.Show(speech.RoleUser, msgHeardPrefix+r.Transcript)
		}
		l.segmenter.Push(r)

	case speech.SourceEnded:
		if !l.listening {
			return
		}
		if !l.settings.NaturalConversation {
			l.engineEnded()
			return
		}
		l.scheduleRestart()

	case speech.SourceError:
		l.onSourceError(ev.Err)
	}
}

func (l *Loop) onSourceError(err error) {
	switch {
	case errors.Is(err, speech.ErrPermissionDenied):
		l.display.Show(speech.RoleAssistant, msgMicPermission)
	case errors.Is(err, speech.ErrUnsupported):
		l.display.Show(speech.RoleAssistant, msgNoRecognition)
	default:
		l.log.Debug("Recognition error", "err", err)
		return
	}
	if l.listening {
		l.stopListening(false)
	}
}

func (l *Loop) scheduleRestart() {
	l.cancelRestart()
	gen := l.restartGen
	l.restart = l.clock.AfterFunc(speech.RestartDelay, func() {
		l.dispatch(func() {
			if gen != l.restartGen || !l.listening {
				return
			}
			l.restart = nil
			if err := l.src.Start(l.ctx); err != nil {
				l.log.Debug("Failed to restart recognition", "err", err)
			}
		})
	})
}

func (l *Loop) cancelRestart() {
	l.restartGen++
	if l.restart != nil {
		l.restart.Stop()
		l.restart = nil
	}
}

func (l *Loop) onUtterance(u speech.Utterance) {
	l.phase = Classifying
	defer l.settle()

	d := l.classify.Classify(u.Text, l.settings)
	l.log.Debug("Utterance", "text", u.Text, "words", u.WordCount, "kind", d.Kind)

	switch d.Kind {
	case command.KindEnd:
		l.state.End()
		l.gate.Say(msgFarewellShown, msgFarewellSpoken)
		if !l.settings.NaturalConversation {
			l.stopListening(false)
		}

	case command.KindSystem:
		reply := d.Rule.Handle(l.ctx, env{l}, d.Lower)
		l.log.Debug("Command", "rule", d.Rule.Name)
		l.gate.Speak(reply)

	case command.KindQuery:
		if d.Activated {
			l.state.Engage()
		}
		if d.Query == "" {
			return
		}
		l.display.Show(speech.RoleAssistant, msgThinking)
		l.query(d.Query)
	}
}

func (l *Loop) query(text string) {
	snap := relay.Snapshot{
		Settings: l.settings,
		History:  l.state.History(),
		Contacts: append([]relay.Contact(nil), l.contacts...),
	}
	if l.settings.LongMemory && l.store != nil {
		snap.Memory = l.store.LoadMemory()
	}

	l.inflight++
	ctx := l.ctx

	go func() {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		res, err := l.relay.Query(ctx, text, snap)
		l.dispatch(func() { l.onReply(text, res, err) })
	}()
}

func (l *Loop) onReply(text string, res relay.Result, err error) {
	l.inflight--
	defer l.settle()

	if err != nil {
		l.log.Warn("Relay query failed", "err", err)
		l.gate.Speak(relay.CommunicationError)
	} else {
		l.state.Record(text, res.Reply)
		if res.Memory != nil && l.settings.LongMemory && l.store != nil {
			if err := l.store.SaveMemory(res.Memory); err != nil {
				l.log.Debug("Failed to save memory", "err", err)
			}
		}
		l.gate.Speak(res.Text)
		if res.CallNumber != "" {
			l.front.Call(res.CallNumber)
		}
	}

	if !l.settings.NaturalConversation {
		l.stopListening(false)
	}
}

func (l *Loop) onTimerExpired() {
	l.gate.Say(msgTimerDoneShown, msgTimerDone)
	l.front.Chime()
}

func (l *Loop) lookupWeather(ctx context.Context) string {
	if l.weather == nil {
		return weather.Unavailable
	}
	return l.weather.Describe(ctx, l.location.Load())
}

// updateSettings applies f to the session copy and to the stored slot.
// The slot is shared by every session, so f is replayed on a fresh load
// rather than overwritten with this session's copy.
func (l *Loop) updateSettings(f func(*conversation.Settings)) {
	f(&l.settings)
	if l.store != nil {
		stored := l.store.LoadSettings()
		f(&stored)
		if err := l.store.SaveSettings(stored); err != nil {
			l.log.Debug("Failed to save settings", "err", err)
		}
	}
	l.pushStatus()
}

func (l *Loop) settle() {
	switch {
	case l.inflight > 0:
		l.phase = Querying
	case l.listening:
		l.phase = Listening
	default:
		l.phase = Idle
	}
}

func (l *Loop) status() Status {
	return Status{Listening: l.listening, Settings: l.settings}
}

func (l *Loop) pushStatus() {
	l.front.Status(l.status())
}

func (l *Loop) shutdown() {
	l.countdown.Cancel()
	l.segmenter.Reset()
	l.cancelRestart()
	if l.listening && l.src != nil {
		_ = l.src.Stop()
	}
	l.listening = false
	l.gate.Silence()
}

type nopFrontend struct{}

func (nopFrontend) OpenLink(string) {}
func (nopFrontend) Call(string)     {}
func (nopFrontend) Chime()          {}
func (nopFrontend) Status(Status)   {}

type nopDisplay struct{}

func (nopDisplay) Show(string, string) {}
