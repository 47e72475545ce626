package speech

import (
	log "log/slog"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

type GateConfig struct {
	Lang       string
	VoiceHints []string
	Rate       float64
	Pitch      float64
	// Abbreviations the engine mispronounces, mapped to their spoken form.
	Abbreviations map[string]string
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Lang:       "he-IL",
		VoiceHints: []string{"Google", "Carmit"},
		Rate:       0.95,
		Pitch:      1.1,
		Abbreviations: map[string]string{
			`צה"ל`: "צהל",
			`ד"ש`:  "דש",
		},
	}
}

// Gate serializes spoken output: every call shows the text, and unless
// muted, cancels whatever is playing and starts the new utterance.
type Gate struct {
	sink    SpeechSink
	display Display
	muted   func() bool
	cfg     GateConfig
	norm    *strings.Replacer
	log     *log.Logger
}

// NewGate builds a gate. A nil sink means synthesis is unavailable; text
// is still displayed.
func NewGate(sink SpeechSink, display Display, muted func() bool, cfg GateConfig, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	if muted == nil {
		muted = func() bool { return false }
	}

	keys := make([]string, 0, len(cfg.Abbreviations))
	for k := range cfg.Abbreviations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, cfg.Abbreviations[k])
	}

	return &Gate{
		sink:    sink,
		display: display,
		muted:   muted,
		cfg:     cfg,
		norm:    strings.NewReplacer(pairs...),
		log:     logger.With("component", "gate"),
	}
}

func (g *Gate) Speak(text string) {
	g.Say(text, text)
}

// Say shows one text and speaks another, for replies whose visual form
// carries decoration the engine should not read out.
func (g *Gate) Say(shown, spoken string) {
	if g.display != nil && shown != "" {
		g.display.Show(RoleAssistant, shown)
	}

	if g.muted() || g.sink == nil || strings.TrimSpace(spoken) == "" {
		return
	}

	g.sink.Cancel()

	p := Playback{
		Text:  g.Normalize(spoken),
		Voice: SelectVoice(g.sink.Voices(), g.cfg.Lang, g.cfg.VoiceHints),
		Lang:  g.cfg.Lang,
		Rate:  g.cfg.Rate,
		Pitch: g.cfg.Pitch,
	}
	if err := g.sink.Speak(p); err != nil {
		g.log.Warn("Failed to start playback", "err", err)
	}
}

// Silence cancels in-flight playback.
func (g *Gate) Silence() {
	if g.sink != nil {
		g.sink.Cancel()
	}
}

func (g *Gate) Normalize(text string) string {
	return g.norm.Replace(text)
}

// SelectVoice prefers a voice in lang whose name carries one of hints,
// then any voice in lang. It returns nil when nothing matches.
func SelectVoice(voices []Voice, lang string, hints []string) *Voice {
	var fallback *Voice
	for i := range voices {
		v := &voices[i]
		if !sameLanguage(v.Lang, lang) {
			continue
		}
		for _, h := range hints {
			if strings.Contains(v.Name, h) {
				return v
			}
		}
		if fallback == nil {
			fallback = v
		}
	}
	return fallback
}

func sameLanguage(a, b string) bool {
	ta, err := language.Parse(a)
	if err != nil {
		return false
	}
	tb, err := language.Parse(b)
	if err != nil {
		return false
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}
