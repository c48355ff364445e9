package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type textSender struct {
	msgs []string
	err  error
}

func (s *textSender) Send(msg string) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

type firer struct{ events []string }

func (f *firer) Fire(event string, _ interface{}) { f.events = append(f.events, event) }

type alert string

func (a alert) String() string { return "alert: " + string(a) }

func TestSendFansOut(t *testing.T) {
	tg, wh := &textSender{}, &firer{}
	d := New(tg, wh)

	d.Send("budget.alert", alert("red"))
	d.Send("stats.reset", 3)

	assert.Equal(t, []string{"alert: red", "[stats.reset] 3"}, tg.msgs)
	assert.Equal(t, []string{"budget.alert", "stats.reset"}, wh.events)
}

func TestSendToleratesMissingAdapters(t *testing.T) {
	d := New(nil, nil)
	assert.NotPanics(t, func() {
		d.Send("budget.alert", nil)
		d.SendTelegram("hi")
	})
}

func TestTelegramErrorStillFiresWebhook(t *testing.T) {
	tg, wh := &textSender{err: errors.New("blocked")}, &firer{}
	New(tg, wh).Send("budget.alert", "x")
	assert.Len(t, wh.events, 1)
}
