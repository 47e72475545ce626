package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUpstream = errors.New("relay: upstream error")

// Transport delivers one chat request to a relay backend.
type Transport interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// HTTPTransport talks to a remote relay over POST /api/chat.
type HTTPTransport struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPTransport(baseURL string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{
		URL:  strings.TrimRight(baseURL, "/") + "/api/chat",
		HTTP: httpClient,
	}
}

func (t *HTTPTransport) Chat(ctx context.Context, chatReq ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("read response: %w", err)
	}

	var out ChatResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(data, &out)
		return ChatResponse{}, fmt.Errorf("%w: %d %s", ErrUpstream, resp.StatusCode, out.Error)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return out, nil
}
