// Package chat is the relay backend: it turns a chat request into a model
// completion behind the assistant's instruction preamble.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"

	"shirley/internal/llm"
	"shirley/internal/relay"
)

const (
	NoAnswer = "לא נמצאה תשובה."

	errModel      = "שגיאה מהמודל"
	errServer     = "שגיאת שרת כללית"
	errBadRequest = "בקשה לא תקינה"
)

const maxBodyBytes = 1 << 20

var emptyMemory = json.RawMessage(`{}`)

// Service answers chat requests. It is both the HTTP handler for
// POST /api/chat and an in-process relay.Transport.
type Service struct {
	completer llm.Completer
	log       *log.Logger
}

func NewService(c llm.Completer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{completer: c, log: logger.With("component", "chat")}
}

func (s *Service) Chat(ctx context.Context, req relay.ChatRequest) (relay.ChatResponse, error) {
	preamble := llm.Preamble(llm.Context{
		Weather:  req.Weather,
		Contacts: req.Contacts,
		Memory:   req.Memory,
	})

	reply, err := s.completer.Complete(ctx, llm.Messages(preamble, req.History, req.Message))
	if err != nil {
		return relay.ChatResponse{}, fmt.Errorf("%w: %w", relay.ErrUpstream, err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = NoAnswer
	}

	// Memory is echoed back unchanged.
	mem := req.Memory
	if v := strings.TrimSpace(string(mem)); v == "" || v == "null" {
		mem = emptyMemory
	}

	return relay.ChatResponse{Reply: reply, Memory: mem}, nil
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.log.Error("Failed to read request", "err", err)
		writeError(w, http.StatusInternalServerError, errServer)
		return
	}

	var req relay.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := s.Chat(r.Context(), req)
	if err != nil {
		s.log.Error("Model request failed", "err", err)
		if errors.Is(err, relay.ErrUpstream) {
			writeError(w, http.StatusInternalServerError, errModel)
		} else {
			writeError(w, http.StatusInternalServerError, errServer)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, relay.ChatResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
