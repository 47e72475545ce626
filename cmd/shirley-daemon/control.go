package main

import (
	"fmt"
	log "log/slog"
	"strings"

	"shirley/internal/assistant"
	"shirley/internal/conversation"
	"shirley/internal/ipc"
	"shirley/internal/live"
)

type settingsStore interface {
	LoadSettings() conversation.Settings
	SaveSettings(conversation.Settings) error
	ClearMemory() error
}

func controlHandler(sessions *live.Server, st settingsStore) ipc.Handler {
	return func(msg ipc.ControlMessage) ipc.Reply {
		log.Info("Control command", "cmd", msg.Cmd)

		switch msg.Cmd {
		case ipc.CmdStatus:
			return ipc.Reply{OK: true, Message: describe(sessions, st)}

		case ipc.CmdMute, ipc.CmdUnmute:
			on := msg.Cmd == ipc.CmdMute
			s := st.LoadSettings()
			s.Mute = on
			if err := st.SaveSettings(s); err != nil {
				return ipc.Reply{Message: fmt.Sprintf("save settings: %v", err)}
			}
			sessions.Each(func(l *assistant.Loop) { l.SetMute(on) })
			return ipc.Reply{OK: true, Message: msg.Cmd + "d"}

		case ipc.CmdClearMemory:
			if err := st.ClearMemory(); err != nil {
				return ipc.Reply{Message: fmt.Sprintf("clear memory: %v", err)}
			}
			return ipc.Reply{OK: true, Message: "memory cleared"}

		case ipc.CmdStop:
			n := 0
			sessions.Each(func(l *assistant.Loop) {
				l.StopListening()
				n++
			})
			return ipc.Reply{OK: true, Message: fmt.Sprintf("stopped %d session(s)", n)}

		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Message: "unknown command: " + msg.Cmd}
		}
	}
}

func describe(sessions *live.Server, st settingsStore) string {
	var b strings.Builder
	s := st.LoadSettings()
	fmt.Fprintf(&b, "settings: natural=%t mute=%t memory=%t\n", s.NaturalConversation, s.Mute, s.LongMemory)

	list := sessions.Sessions()
	fmt.Fprintf(&b, "sessions: %d", len(list))
	for _, sess := range list {
		status := sess.Loop().Status()
		fmt.Fprintf(&b, "\n  %s listening=%t natural=%t mute=%t", sess.ID, status.Listening, status.NaturalConversation, status.Mute)
	}
	return b.String()
}
