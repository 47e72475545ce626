package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{"type":"result","index":2,"transcript":"שלום","isFinal":true}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Type != TypeResult || m.Index != 2 || m.Transcript != "שלום" || !m.IsFinal {
		t.Errorf("message = %+v", m)
	}

	if _, err := Parse([]byte(`{"type":"dance"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("Parse accepted broken json")
	}
}

func TestStatusKeepsFalseFields(t *testing.T) {
	data, err := json.Marshal(&Message{
		Type:                TypeStatus,
		Listening:           Bool(false),
		NaturalConversation: Bool(true),
		Mute:                Bool(false),
		LongMemory:          Bool(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"listening":false`, `"mute":false`, `"longMemory":false`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("%s missing %s", data, key)
		}
	}
}

var upgrader = ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_RoundTrip(t *testing.T) {
	fromClient := make(chan *Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		web := Wrap(conn)
		defer web.Close()

		if err := web.Write(&Message{Type: TypeDisplay, Role: "assistant", Text: "היי"}); err != nil {
			t.Errorf("server write: %v", err)
			return
		}
		in := web.Read()
		if in.Kind == ReadOK {
			fromClient <- in.Msg
		}
		// Hold the connection until the client goes away.
		web.Read()
	}))
	defer srv.Close()

	got := make(chan *Message, 1)
	c, err := NewClient(ClientConfig{
		URL:     wsURL(srv),
		EmitOut: func(m *Message) { got <- m },
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	select {
	case m := <-got:
		if m.Type != TypeDisplay || m.Text != "היי" {
			t.Errorf("client got %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server message")
	}

	if err := c.Transmit(&Message{Type: TypeStart}); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	select {
	case m := <-fromClient:
		if m.Type != TypeStart {
			t.Errorf("server got %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_Reconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			conn.Close()
			return
		}
		web := Wrap(conn)
		defer web.Close()
		web.Read()
	}))
	defer srv.Close()

	var connects atomic.Int32
	c, err := NewClient(ClientConfig{
		URL:       wsURL(srv),
		Reconn:    10 * time.Millisecond,
		OnConnect: func() { connects.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for connects.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("connects = %d, want 2", connects.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"going away", &ws.CloseError{Code: ws.CloseGoingAway}, true},
		{"wrapped normal", fmt.Errorf("read: %w", &ws.CloseError{Code: ws.CloseNormalClosure}), true},
		{"lost", io.ErrUnexpectedEOF, false},
	}
	for _, tt := range tests {
		if got := IsClosed(tt.err); got != tt.want {
			t.Errorf("%s: IsClosed = %v, want %v", tt.name, got, tt.want)
		}
	}
}
