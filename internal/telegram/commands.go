package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/ecowatch/internal/stats"
)

const (
	callbackStats  = "stats"
	callbackBudget = "budget"
)

// StatsSource is the read side of the aggregator used by the commands.
type StatsSource interface {
	Summary(ctx context.Context) (stats.Summary, error)
	History(ctx context.Context, limit int) ([]stats.DaySummary, error)
}

// CommandHandler handles Telegram bot commands.
type CommandHandler struct {
	stats StatsSource
	reply func(chatID int64, text string)
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(src StatsSource) *CommandHandler {
	return &CommandHandler{stats: src, reply: func(int64, string) {}}
}

// Handle answers a command (or inline button payload) in chatID.
func (h *CommandHandler) Handle(ctx context.Context, chatID int64, command string) {
	h.reply(chatID, h.Respond(ctx, command))
}

// Respond renders the reply text for a command.
func (h *CommandHandler) Respond(ctx context.Context, command string) string {
	switch strings.TrimPrefix(command, "/") {
	case "stats", "start":
		return h.statsText(ctx)
	case "budget":
		return h.budgetText(ctx)
	case "history":
		return h.historyText(ctx)
	case "help":
		return helpText
	default:
		return "Unknown command. Use /help for a list of commands."
	}
}

func (h *CommandHandler) statsText(ctx context.Context) string {
	s, err := h.stats.Summary(ctx)
	if err != nil {
		log.Printf("telegram: stats: %v", err)
		return "Error fetching stats."
	}
	var sb strings.Builder
	sb.WriteString("*AI usage footprint*\n\n")
	fmt.Fprintf(&sb, "Requests: %d\nTokens (est.): %d\nAvoided: %d\n\n",
		s.Totals.Requests, s.Totals.Tokens, s.Totals.Avoided)
	fmt.Fprintf(&sb, "💧 Water: %.2f L\n⚡ Electricity: %.1f Wh\n🌫 CO2: %.3f kg\n",
		s.Impact.WaterLiters, s.Impact.ElectricityWh, s.Impact.Co2Kg)
	fmt.Fprintf(&sb, "💴 Cost: ¥%.1f\n\n", s.Impact.WaterCost+s.Impact.ElectricityYen)
	fmt.Fprintf(&sb, "Today (%s): %d requests, %d tokens", s.Today.Date, s.Today.Requests, s.Today.Tokens)
	return sb.String()
}

func (h *CommandHandler) budgetText(ctx context.Context) string {
	s, err := h.stats.Summary(ctx)
	if err != nil {
		log.Printf("telegram: budget: %v", err)
		return "Error fetching budget."
	}
	b := s.Budget
	return fmt.Sprintf("%s *Daily CO2 budget*\n\n%.1f g of %.0f g (%.0f%%)\n%d requests today",
		budgetIcon(b.Percent), b.Co2Grams, b.LimitGrams, b.Percent, b.Requests)
}

func (h *CommandHandler) historyText(ctx context.Context) string {
	days, err := h.stats.History(ctx, 7)
	if err != nil {
		log.Printf("telegram: history: %v", err)
		return "Error fetching history."
	}
	var sb strings.Builder
	sb.WriteString("*Last 7 days*\n\n")
	for _, d := range days {
		fmt.Fprintf(&sb, "`%s` %d req, %d tok, %.1f g\n", d.Date, d.Requests, d.Tokens, d.Co2Grams)
	}
	if len(days) == 0 {
		sb.WriteString("_No usage recorded yet._")
	}
	return sb.String()
}

const helpText = `*ecowatch Commands*

/stats — Totals and estimated impact
/budget — Today's CO2 budget
/history — Last 7 days
/help — This help`

func budgetIcon(percent float64) string {
	switch {
	case percent >= 100:
		return "🔴"
	case percent >= 80:
		return "🟠"
	case percent >= 60:
		return "🟡"
	default:
		return "🟢"
	}
}
