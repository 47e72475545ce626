// Package conversation keeps the per-session dialogue state: settings, the
// rolling history sent as context, and whether the assistant is engaged.
package conversation

const MaxHistory = 8

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Settings struct {
	NaturalConversation bool `json:"naturalConversation"`
	Mute                bool `json:"mute"`
	LongMemory          bool `json:"longMemory"`
}

func DefaultSettings() Settings {
	return Settings{
		NaturalConversation: true,
		Mute:                false,
		LongMemory:          true,
	}
}

// State is owned by a single control loop and is not safe for concurrent use.
type State struct {
	history []Turn
	engaged bool
}

func NewState() *State {
	return &State{history: make([]Turn, 0, MaxHistory)}
}

// Record appends one completed exchange, evicting the oldest turns beyond
// MaxHistory.
func (s *State) Record(user, assistant string) {
	s.history = append(s.history,
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleAssistant, Content: assistant},
	)
	if over := len(s.history) - MaxHistory; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// History returns a copy safe to hand to a request that outlives the turn.
func (s *State) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) Engaged() bool { return s.engaged }

func (s *State) Engage() { s.engaged = true }

// End returns the state to its initial values.
func (s *State) End() {
	s.history = s.history[:0]
	s.engaged = false
}
