package ipc

import (
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")

	srv, err := StartServer(path, func(m ControlMessage) Reply {
		switch m.Cmd {
		case CmdStatus:
			return Reply{OK: true, Message: "sessions: 0"}
		default:
			return Reply{Message: "unknown command " + m.Cmd}
		}
	})
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer srv.Close()

	tests := []struct {
		cmd  string
		ok   bool
		want string
	}{
		{CmdStatus, true, "sessions: 0"},
		{"dance", false, "unknown command dance"},
	}
	for _, tt := range tests {
		got, err := SendCommand(path, tt.cmd)
		if err != nil {
			t.Fatalf("SendCommand(%q): %v", tt.cmd, err)
		}
		if got.OK != tt.ok || got.Message != tt.want {
			t.Errorf("SendCommand(%q) = %+v", tt.cmd, got)
		}
	}
}

func TestSendCommand_NoDaemon(t *testing.T) {
	if _, err := SendCommand(filepath.Join(t.TempDir(), "missing.sock"), CmdStatus); err == nil {
		t.Fatal("SendCommand succeeded without a server")
	}
}
