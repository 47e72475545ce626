package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shirley/internal/conversation"
	"shirley/internal/llm"
	"shirley/internal/relay"
)

type fakeCompleter struct {
	got   []llm.Message
	reply string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	f.got = msgs
	return f.reply, f.err
}

func quietLogger() *log.Logger {
	return log.New(log.NewTextHandler(io.Discard, nil))
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_Success(t *testing.T) {
	fc := &fakeCompleter{reply: "שלום!"}
	s := NewService(fc, quietLogger())

	body, _ := json.Marshal(relay.ChatRequest{
		Message:  "מה נשמע",
		Weather:  "22 מעלות.",
		Contacts: "דנה:050",
		History: []conversation.Turn{
			{Role: conversation.RoleUser, Content: "היי"},
			{Role: conversation.RoleAssistant, Content: "היי!"},
		},
		Memory: json.RawMessage(`{"name":"דנה"}`),
	})

	rec := post(t, s, string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp relay.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "שלום!" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if string(resp.Memory) != `{"name":"דנה"}` {
		t.Errorf("memory = %s", resp.Memory)
	}

	if len(fc.got) != 4 {
		t.Fatalf("messages = %d, want 4", len(fc.got))
	}
	sys := fc.got[0]
	if sys.Role != llm.RoleSystem || !strings.Contains(sys.Content, "22 מעלות.") || !strings.Contains(sys.Content, "דנה:050") {
		t.Errorf("system message = %+v", sys)
	}
	if last := fc.got[3]; last.Role != llm.RoleUser || last.Content != "מה נשמע" {
		t.Errorf("last message = %+v", last)
	}
}

func TestServeHTTP_EmptyReplyAndMemory(t *testing.T) {
	s := NewService(&fakeCompleter{reply: ""}, quietLogger())

	rec := post(t, s, `{"message":"היי","memory":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp relay.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != NoAnswer {
		t.Errorf("reply = %q, want %q", resp.Reply, NoAnswer)
	}
	if string(resp.Memory) != `{}` {
		t.Errorf("memory = %s, want {}", resp.Memory)
	}
}

func TestServeHTTP_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		status int
		msg    string
	}{
		{"upstream failure", http.MethodPost, `{"message":"היי"}`, errors.New("boom"), http.StatusInternalServerError, errModel},
		{"bad json", http.MethodPost, `{`, nil, http.StatusBadRequest, errBadRequest},
		{"wrong method", http.MethodGet, ``, nil, http.StatusMethodNotAllowed, errBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&fakeCompleter{reply: "x", err: tt.err}, quietLogger())

			req := httptest.NewRequest(tt.method, "/api/chat", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp relay.ChatResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error != tt.msg {
				t.Errorf("error = %q, want %q", resp.Error, tt.msg)
			}
		})
	}
}

func TestService_AsRelayTransport(t *testing.T) {
	var tr relay.Transport = NewService(&fakeCompleter{err: errors.New("down")}, quietLogger())

	_, err := tr.Chat(context.Background(), relay.ChatRequest{Message: "היי"})
	if !errors.Is(err, relay.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestService_ThroughHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(NewService(&fakeCompleter{reply: "בטח [CALL:050-1]"}, quietLogger()))
	defer srv.Close()

	c := relay.NewClient(relay.NewHTTPTransport(srv.URL, srv.Client()), nil, quietLogger())
	res, err := c.Query(context.Background(), "תתקשרי", relay.Snapshot{Settings: conversation.DefaultSettings()})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Text != "בטח" || res.CallNumber != "0501" {
		t.Errorf("result = %+v", res)
	}
	if string(res.Memory) != `{}` {
		t.Errorf("memory = %s", res.Memory)
	}
}
