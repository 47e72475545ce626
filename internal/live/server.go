// Package live hosts control loops for websocket clients on /ws.
package live

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"shirley/internal/assistant"
	"shirley/internal/clock"
	"shirley/internal/command"
	"shirley/internal/conversation"
	"shirley/internal/relay"
	"shirley/internal/speech"
	"shirley/internal/weather"
	"shirley/pkg/protocol"
)

const maxMessageBytes = 256 << 10

type Config struct {
	Transport  relay.Transport
	Store      assistant.Store
	Weather    assistant.WeatherService
	Location   *weather.Location
	Classifier *command.Classifier
	Clock      clock.Clock
	Logger     *log.Logger
}

type Server struct {
	cfg      Config
	log      *log.Logger
	upgrader ws.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger.With("component", "live"),
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	sess := s.newSession(protocol.Wrap(conn))
	defer sess.ws.Close()

	s.register(sess)
	defer s.unregister(sess.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.loop.Run(ctx)
	}()

	sess.log.Info("Session opened", "remote", r.RemoteAddr)
	s.read(ctx, sess)
	cancel()
	<-done
	sess.log.Info("Session closed")
}

func (s *Server) newSession(web *protocol.WebSocket) *Session {
	id := uuid.New().String()
	logger := s.cfg.Logger.With("session", id)

	sess := &Session{
		ID:     id,
		ws:     web,
		events: make(chan speech.SourceEvent, 16),
		log:    logger.With("component", "live"),
	}
	sess.loop = assistant.New(assistant.Deps{
		Source:     sess,
		Sink:       sess,
		Display:    sess,
		Frontend:   sess,
		Transport:  s.cfg.Transport,
		Store:      s.cfg.Store,
		Weather:    s.cfg.Weather,
		Location:   s.cfg.Location,
		Classifier: s.cfg.Classifier,
		Clock:      s.cfg.Clock,
		Logger:     logger,
	})
	return sess
}

func (s *Server) read(ctx context.Context, sess *Session) {
	for {
		in := sess.ws.Read()
		switch in.Kind {
		case protocol.ConnClosed:
			if !protocol.IsClosed(in.Err) {
				sess.log.Warn("Connection lost", "err", in.Err)
			}
			return
		case protocol.ReadFailure:
			sess.log.Warn("Bad message", "err", in.Err)
			continue
		}

		if !s.handle(ctx, sess, in.Msg) {
			return
		}
	}
}

// handle reports false once the session is over.
func (s *Server) handle(ctx context.Context, sess *Session, m *protocol.Message) bool {
	loop := sess.loop

	switch m.Type {
	case protocol.TypeStart:
		loop.StartListening()
	case protocol.TypeStop:
		loop.StopListening()

	case protocol.TypeResult:
		return sess.emit(ctx, speech.SourceEvent{
			Kind:   speech.SourceResult,
			Result: speech.RecognitionEvent{Index: m.Index, Transcript: m.Transcript, IsFinal: m.IsFinal},
		})
	case protocol.TypeEnd:
		return sess.emit(ctx, speech.SourceEvent{Kind: speech.SourceEnded})
	case protocol.TypeError:
		return sess.emit(ctx, speech.SourceEvent{Kind: speech.SourceError, Err: codeError(m.Code)})

	case protocol.TypeVoices:
		sess.setVoices(m.Voices)
	case protocol.TypeContacts:
		cs := make([]relay.Contact, 0, len(m.Contacts))
		for _, c := range m.Contacts {
			cs = append(cs, relay.Contact{Name: c.Name, Phone: c.Phone})
		}
		loop.SetContacts(cs)
	case protocol.TypeContactsUnsupported:
		err := speech.ErrUnsupported
		if m.Code == protocol.CodePermissionDenied {
			err = speech.ErrPermissionDenied
		}
		loop.ContactsFailed(err)
	case protocol.TypeLocation:
		if m.Lat != nil && m.Lon != nil {
			loop.SetLocation(weather.Location{Lat: *m.Lat, Lon: *m.Lon})
		}
	case protocol.TypeSettings:
		loop.UpdateSettings(func(st *conversation.Settings) {
			if m.NaturalConversation != nil {
				st.NaturalConversation = *m.NaturalConversation
			}
			if m.Mute != nil {
				st.Mute = *m.Mute
			}
			if m.LongMemory != nil {
				st.LongMemory = *m.LongMemory
			}
		})
	case protocol.TypeToggleMode:
		loop.ToggleMode()
	case protocol.TypeClearMemory:
		loop.ClearMemory()

	default:
		sess.log.Debug("Ignoring message", "type", m.Type)
	}
	return true
}

func (sess *Session) emit(ctx context.Context, ev speech.SourceEvent) bool {
	select {
	case sess.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func codeError(code string) error {
	switch code {
	case protocol.CodePermissionDenied:
		return speech.ErrPermissionDenied
	case protocol.CodeUnsupported:
		return speech.ErrUnsupported
	default:
		return errors.New("recognition: " + code)
	}
}

func (s *Server) register(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Server) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sessions returns the open sessions ordered by ID.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Each runs f with the loop of every open session.
func (s *Server) Each(f func(*assistant.Loop)) {
	for _, sess := range s.Sessions() {
		f(sess.loop)
	}
}
