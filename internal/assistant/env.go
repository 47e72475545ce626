package assistant

import (
	"context"
	"time"

	"shirley/internal/command"
	"shirley/internal/conversation"
)

// env is the command.Env of a loop. It is only used on the loop goroutine.
type env struct {
	l *Loop
}

var _ command.Env = env{}

func (e env) Now() time.Time {
	return e.l.clock.Now()
}

func (e env) Weather(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, weatherTimeout)
	defer cancel()
	return e.l.lookupWeather(ctx)
}

func (e env) OpenLink(url string) {
	e.l.front.OpenLink(url)
}

func (e env) SetMute(on bool) {
	e.l.updateSettings(func(s *conversation.Settings) { s.Mute = on })
}

func (e env) SetTimer(d time.Duration) {
	e.l.countdown.Set(d)
}

func (e env) CancelTimer() bool {
	return e.l.countdown.Cancel()
}

func (e env) TimerRemaining() (time.Duration, bool) {
	if !e.l.countdown.Active() {
		return 0, false
	}
	return e.l.countdown.Remaining(), true
}
