// Package protocol is the live session wire format shared by the daemon
// and its front ends, plus a reconnecting websocket client.
package protocol

import (
	"context"
	log "log/slog"
	"time"
)

type ClientConfig struct {
	URL    string
	Reconn time.Duration
	// EmitOut receives every parsed server message.
	EmitOut func(*Message)
	// OnConnect runs after the first dial and after every reconnect.
	OnConnect func()
}

type Client struct {
	ws        *WebSocket
	emitOut   func(*Message)
	onConnect func()
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Reconn <= 0 {
		cfg.Reconn = time.Second
	}

	web, err := Dial(cfg.URL, cfg.Reconn)
	if err != nil {
		return nil, err
	}

	return &Client{
		ws:        web,
		emitOut:   cfg.EmitOut,
		onConnect: cfg.OnConnect,
	}, nil
}

func (c *Client) Transmit(m *Message) error {
	err := c.ws.Write(m)
	if err != nil {
		log.Error("Failed to transmit", "type", m.Type, "err", err)
	}
	return err
}

// Run reads server messages until ctx ends, redialing whenever the
// connection drops.
func (c *Client) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { c.ws.Close() })
	defer stop()

	if c.onConnect != nil {
		c.onConnect()
	}

	for {
		in := c.ws.Read()
		switch in.Kind {
		case ConnClosed:
			if ctx.Err() != nil {
				return
			}
			log.Warn("Trying to reconnect on", "url", c.ws.url, "err", in.Err)
			if !c.ws.TryReconn(ctx.Done()) {
				return
			}
			if ctx.Err() != nil {
				c.ws.Close()
				return
			}
			log.Info("Successfully reconnected")
			if c.onConnect != nil {
				c.onConnect()
			}

		case ReadFailure:
			log.Warn("Failed to parse", "err", in.Err)

		case ReadOK:
			if c.emitOut != nil {
				c.emitOut(in.Msg)
			}
		}
	}
}

func (c *Client) Close() error {
	return c.ws.Close()
}
