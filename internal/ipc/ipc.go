// Package ipc is the daemon's local control channel: one JSON command per
// unix-socket connection, answered by one JSON reply.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/shirley.sock"

const (
	CmdStatus      = "status"
	CmdMute        = "mute"
	CmdUnmute      = "unmute"
	CmdClearMemory = "clear-memory"
	CmdStop        = "stop"
)

const ioTimeout = 5 * time.Second

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Handler func(ControlMessage) Reply

type Server struct {
	ln   net.Listener
	path string
}

// StartServer listens on path, replacing a stale socket file, and serves
// connections in the background.
func StartServer(path string, handler Handler) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Warn("Failed to accept control connection", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln, path: path}, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		return
	}

	log.Debug("Control command", "cmd", msg.Cmd)
	reply := handler(msg)

	enc := json.NewEncoder(conn)
	if err := enc.Encode(reply); err != nil {
		log.Debug("Failed to reply", "err", err)
	}
}

func SendCommand(path, cmd string) (Reply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	enc := json.NewEncoder(conn)
	if err := enc.Encode(ControlMessage{Cmd: cmd}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
