package tokenizer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/stats"
)

// BudgetZone is how far today's estimated emissions are into the daily limit.
type BudgetZone int

const (
	ZoneGreen  BudgetZone = iota // < 60%
	ZoneYellow                   // >= 60%
	ZoneOrange                   // >= 80%
	ZoneRed                      // >= 100%
)

func (z BudgetZone) String() string {
	switch z {
	case ZoneYellow:
		return "yellow"
	case ZoneOrange:
		return "orange"
	case ZoneRed:
		return "red"
	default:
		return "green"
	}
}

// ZoneFor maps a budget percentage to its zone.
func ZoneFor(percent float64) BudgetZone {
	switch {
	case percent >= 100:
		return ZoneRed
	case percent >= 80:
		return ZoneOrange
	case percent >= 60:
		return ZoneYellow
	default:
		return ZoneGreen
	}
}

// BudgetSource reports today's budget usage.
type BudgetSource interface {
	BudgetStatus(ctx context.Context, dailyLimitGrams float64) (stats.BudgetStatus, error)
}

// NotifySender can dispatch a notification event.
type NotifySender interface {
	Send(event string, payload interface{})
}

// EventBudgetAlert is the notification event name for zone escalations.
const EventBudgetAlert = "budget.alert"

// Governor checks the daily CO2 budget and raises an alert when the zone escalates.
type Governor struct {
	source    BudgetSource
	settings  *config.Live
	presenter intent.Presenter
	notify    NotifySender

	mu       sync.Mutex
	day      string
	lastZone BudgetZone
}

// NewGovernor creates a new Governor. presenter and notify may be nil.
func NewGovernor(source BudgetSource, settings *config.Live, presenter intent.Presenter, notify NotifySender) *Governor {
	if presenter == nil {
		presenter = intent.Discard
	}
	return &Governor{source: source, settings: settings, presenter: presenter, notify: notify}
}

// GetBudgetZone returns today's zone and the status it was computed from.
func (g *Governor) GetBudgetZone(ctx context.Context) (BudgetZone, stats.BudgetStatus, error) {
	limit := config.DefaultSettings().DailyLimitCo2Grams
	if g.settings != nil {
		limit = g.settings.Get().DailyLimitCo2Grams
	}
	st, err := g.source.BudgetStatus(ctx, limit)
	if err != nil {
		return ZoneGreen, st, fmt.Errorf("governor.GetBudgetZone: %w", err)
	}
	return ZoneFor(st.Percent), st, nil
}

// CheckBudget emits a budget alert when today's zone rises above the highest
// zone already alerted today. The zone memory resets when the day changes.
func (g *Governor) CheckBudget(ctx context.Context) {
	zone, st, err := g.GetBudgetZone(ctx)
	if err != nil {
		log.Printf("governor.CheckBudget: %v", err)
		return
	}

	g.mu.Lock()
	if st.Date != g.day {
		g.day, g.lastZone = st.Date, ZoneGreen
	}
	escalated := zone > g.lastZone
	if escalated {
		g.lastZone = zone
	}
	g.mu.Unlock()
	if !escalated {
		return
	}

	msg := AlertMessage(zone, st)
	g.presenter.Present(intent.Intent{
		Kind:       intent.BudgetAlert,
		Message:    msg,
		Zone:       zone.String(),
		Percent:    st.Percent,
		LimitGrams: st.LimitGrams,
	})
	if g.notify != nil {
		g.notify.Send(EventBudgetAlert, Alert{Zone: zone.String(), Message: msg, Status: st})
	}
}

// Alert is the notification payload for a zone escalation.
type Alert struct {
	Zone    string             `json:"zone"`
	Message string             `json:"message"`
	Status  stats.BudgetStatus `json:"status"`
}

func (a Alert) String() string { return a.Message }

// AlertMessage renders the human readable text of a budget alert.
func AlertMessage(zone BudgetZone, st stats.BudgetStatus) string {
	icon := map[BudgetZone]string{ZoneYellow: "⚠️", ZoneOrange: "🟠", ZoneRed: "🔴"}[zone]
	return fmt.Sprintf("%s Today's AI usage is at %.0f%% of the %.0f g CO2 budget (%.1f g, %d requests).",
		icon, st.Percent, st.LimitGrams, st.Co2Grams, st.Requests)
}
