package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// WebSocket wraps a connection with a write lock, since gorilla allows
// one concurrent writer.
type WebSocket struct {
	mu   sync.Mutex
	conn *ws.Conn
	url  string
	// reconn is the delay between redial attempts.
	reconn time.Duration
}

func Dial(url string, reconn time.Duration) (*WebSocket, error) {
	log.Debug("Dialing websocket", "url", url)

	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &WebSocket{conn: conn, url: url, reconn: reconn}, nil
}

// Wrap adopts an accepted server-side connection. It cannot reconnect.
func Wrap(conn *ws.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

func (web *WebSocket) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	web.mu.Lock()
	defer web.mu.Unlock()

	log.Debug("Write ws", "type", m.Type)
	return web.conn.WriteMessage(ws.TextMessage, data)
}

type IncomeKind uint

const (
	ConnClosed IncomeKind = iota
	ReadFailure
	ReadOK
)

type Income struct {
	Kind IncomeKind
	Msg  *Message
	Err  error
}

// Read blocks for the next frame. Any transport error leaves the
// connection unusable and is reported as ConnClosed; frames that do not
// parse are reported as ReadFailure.
func (web *WebSocket) Read() Income {
	_, data, err := web.current().ReadMessage()
	if err != nil {
		return Income{Kind: ConnClosed, Err: err}
	}

	msg, err := Parse(data)
	if err != nil {
		return Income{Kind: ReadFailure, Err: err}
	}

	log.Debug("Read ws", "type", msg.Type)
	return Income{Kind: ReadOK, Msg: msg}
}

// TryReconn redials until it succeeds or stop is closed.
func (web *WebSocket) TryReconn(stop <-chan struct{}) bool {
	for {
		conn, _, err := ws.DefaultDialer.Dial(web.url, nil)
		if err == nil {
			web.mu.Lock()
			web.conn.Close()
			web.conn = conn
			web.mu.Unlock()
			return true
		}

		select {
		case <-stop:
			return false
		case <-time.After(web.reconn):
		}
	}
}

func (web *WebSocket) Close() error {
	web.mu.Lock()
	defer web.mu.Unlock()

	_ = web.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return web.conn.Close()
}

func (web *WebSocket) current() *ws.Conn {
	web.mu.Lock()
	defer web.mu.Unlock()
	return web.conn
}

// IsClosed reports whether err is the peer's close frame rather than a
// lost connection.
func IsClosed(err error) bool {
	var ce *ws.CloseError
	return errors.As(err, &ce)
}
