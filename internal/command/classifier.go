// Package command decides what an utterance is: the end of the
// conversation, a built-in command, or a query for the language model.
package command

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shirley/internal/conversation"
)

type Kind int

const (
	KindQuery Kind = iota
	KindEnd
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindSystem:
		return "system"
	default:
		return "query"
	}
}

type Decision struct {
	Kind Kind
	// Rule is set for KindSystem.
	Rule *Rule
	// Lower is the lowercased utterance the rule matched against.
	Lower string
	// Query is the utterance with the wake word removed; it may be empty.
	Query     string
	WakeWord  bool
	Activated bool
}

type Config struct {
	WakeWord  string
	Farewells []string
	// MaxFarewellWords guards against farewells inside longer sentences.
	MaxFarewellWords int
}

func DefaultConfig() Config {
	return Config{
		WakeWord:         "שירלי",
		Farewells:        []string{"ביי", "להתראות"},
		MaxFarewellWords: 3,
	}
}

type Classifier struct {
	cfg   Config
	rules []Rule
	wake  *regexp.Regexp
}

func NewClassifier(cfg Config, rules []Rule) *Classifier {
	c := &Classifier{cfg: cfg, rules: rules}
	if cfg.WakeWord != "" {
		c.wake = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(cfg.WakeWord))
	}
	return c
}

// Classify has no side effects; a system decision is executed by calling
// its Rule's Handle.
func (c *Classifier) Classify(text string, s conversation.Settings) Decision {
	lower := cases.Lower(language.Und).String(text)
	words := tokens(lower)

	if len(words) <= c.cfg.MaxFarewellWords && containsWord(words, c.cfg.Farewells...) {
		return Decision{Kind: KindEnd, Lower: lower}
	}

	for i := range c.rules {
		if c.rules[i].Match(lower) {
			return Decision{Kind: KindSystem, Rule: &c.rules[i], Lower: lower}
		}
	}

	d := Decision{Kind: KindQuery, Lower: lower, Query: strings.TrimSpace(text)}
	if c.wake != nil && containsWord(words, cases.Lower(language.Und).String(c.cfg.WakeWord)) {
		d.WakeWord = true
		d.Activated = true
		d.Query = strip(c.wake.ReplaceAllString(text, " "))
	}
	if !d.WakeWord && s.NaturalConversation {
		d.Activated = true
	}
	return d
}

func tokens(lower string) []string {
	fields := strings.Fields(lower)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.TrimFunc(f, unicode.IsPunct); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsWord(words []string, want ...string) bool {
	for _, w := range want {
		if slices.Contains(words, w) {
			return true
		}
	}
	return false
}

func strip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.TrimRight(s, " ,")
}
