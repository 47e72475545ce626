package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPTransport_Chat(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reply":"שלום","memory":{"k":"v"}}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/", srv.Client())
	resp, err := tr.Chat(context.Background(), ChatRequest{Message: "היי"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Message != "היי" {
		t.Errorf("server got message %q", got.Message)
	}
	if resp.Reply != "שלום" || string(resp.Memory) != `{"k":"v"}` {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPTransport_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"שגיאה מהמודל"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, srv.Client())
	_, err := tr.Chat(context.Background(), ChatRequest{Message: "היי"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestHTTPTransport_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, srv.Client())
	if _, err := tr.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("Chat succeeded on a non-json body")
	}
}
