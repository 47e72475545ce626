package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shirley/internal/hebcal"
)

// Env is what built-in commands may touch. It is implemented by the
// control loop that owns the session.
type Env interface {
	Now() time.Time
	Weather(ctx context.Context) string
	OpenLink(url string)
	SetMute(on bool)
	SetTimer(d time.Duration)
	CancelTimer() bool
	TimerRemaining() (time.Duration, bool)
}

// Rule is one row of the command table. Match receives lowercased text.
type Rule struct {
	Name   string
	Match  func(lower string) bool
	Handle func(ctx context.Context, env Env, lower string) string
}

func containsAny(phrases ...string) func(string) bool {
	return func(lower string) bool {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

func reply(s string) func(context.Context, Env, string) string {
	return func(context.Context, Env, string) string { return s }
}

// Link is a whitelisted external destination.
type Link struct {
	Key     string
	Name    string
	URL     string
	Phrases []string
}

var DefaultLinks = []Link{
	{Key: "whatsapp", Name: "ווטסאפ", URL: "https://web.whatsapp.com", Phrases: []string{"פתחי ווטסאפ", "פתחי וואטסאפ"}},
	{Key: "youtube", Name: "יוטיוב", URL: "https://www.youtube.com", Phrases: []string{"פתחי יוטיוב"}},
	{Key: "facebook", Name: "פייסבוק", URL: "https://www.facebook.com", Phrases: []string{"פתחי פייסבוק"}},
	{Key: "telegram", Name: "טלגרם", URL: "https://web.telegram.org", Phrases: []string{"פתחי טלגרם"}},
	{Key: "google", Name: "גוגל", URL: "https://www.google.com", Phrases: []string{"פתחי גוגל"}},
}

var minutesRe = regexp.MustCompile(`(\d+)\s*(?:דקות|דקה)`)

// ParseMinutes extracts the first integer directly followed by a minutes
// unit.
func ParseMinutes(lower string) (int, bool) {
	m := minutesRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// DefaultRules is the built-in command table. More specific phrases come
// before the ones they contain.
func DefaultRules() []Rule {
	rules := []Rule{
		{
			Name:  "weather",
			Match: containsAny("מזג אוויר", "מזג האוויר"),
			Handle: func(ctx context.Context, env Env, _ string) string {
				return msgWeatherPrefix + env.Weather(ctx)
			},
		},
		{
			Name:  "time",
			Match: containsAny("מה השעה"),
			Handle: func(_ context.Context, env Env, _ string) string {
				return fmt.Sprintf(msgTimeFmt, hebcal.ClockTime(env.Now()))
			},
		},
		{
			Name:  "hebrew-date",
			Match: containsAny("תאריך עברי", "התאריך העברי", "בלוח השנה העברי"),
			Handle: func(_ context.Context, env Env, _ string) string {
				return fmt.Sprintf(msgHebrewDateFmt, hebcal.Long(env.Now()))
			},
		},
		{
			Name:  "date",
			Match: containsAny("איזה תאריך", "מה התאריך"),
			Handle: func(_ context.Context, env Env, _ string) string {
				return fmt.Sprintf(msgCivilDateFmt, hebcal.CivilDate(env.Now()))
			},
		},
		{
			Name:  "weekday",
			Match: containsAny("איזה יום", "מה היום"),
			Handle: func(_ context.Context, env Env, _ string) string {
				return fmt.Sprintf(msgWeekdayFmt, hebcal.WeekdayName(env.Now()))
			},
		},
	}

	for _, l := range DefaultLinks {
		rules = append(rules, Rule{
			Name:  "open-" + l.Key,
			Match: containsAny(l.Phrases...),
			Handle: func(_ context.Context, env Env, _ string) string {
				env.OpenLink(l.URL)
				return fmt.Sprintf(msgOpeningFmt, l.Name)
			},
		})
	}

	rules = append(rules,
		Rule{Name: "camera", Match: containsAny("פתחי מצלמה", "צלמי תמונה"), Handle: reply(msgCamera)},
		Rule{Name: "volume", Match: containsAny("הגבירי ווליום", "הנמיכי ווליום"), Handle: reply(msgVolume)},
		Rule{
			Name:  "mute",
			Match: containsAny("השתיקי", "היכנסי למצב שקט"),
			Handle: func(_ context.Context, env Env, _ string) string {
				env.SetMute(true)
				return msgMuted
			},
		},
		Rule{
			Name:  "unmute",
			Match: containsAny("בטלי השתקה", "צאי ממצב שקט"),
			Handle: func(_ context.Context, env Env, _ string) string {
				env.SetMute(false)
				return msgUnmuted
			},
		},
		Rule{
			Name:  "timer-cancel",
			Match: containsAny("בטלי טיימר", "בטלי את הטיימר"),
			Handle: func(_ context.Context, env Env, _ string) string {
				if env.CancelTimer() {
					return msgTimerCancelled
				}
				return msgNoTimer
			},
		},
		Rule{
			Name:  "timer-remaining",
			Match: containsAny("כמה זמן נשאר"),
			Handle: func(_ context.Context, env Env, _ string) string {
				left, ok := env.TimerRemaining()
				if !ok {
					return msgNoTimer
				}
				return fmt.Sprintf(msgRemainingFmt, int(left/time.Minute), int(left%time.Minute/time.Second))
			},
		},
		Rule{
			Name:  "timer-set",
			Match: containsAny("טיימר"),
			Handle: func(_ context.Context, env Env, lower string) string {
				minutes, ok := ParseMinutes(lower)
				if !ok {
					return msgTimerAskMinutes
				}
				env.SetTimer(time.Duration(minutes) * time.Minute)
				return fmt.Sprintf(msgTimerSetFmt, minutes)
			},
		},
	)

	return rules
}
