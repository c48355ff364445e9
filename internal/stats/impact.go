package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/yourusername/ecowatch/internal/config"
)

// BudgetStatus compares today's estimated emissions with a daily limit.
type BudgetStatus struct {
	Date       string  `json:"date"`
	Requests   int     `json:"requests"`
	Co2Grams   float64 `json:"co2_grams"`
	LimitGrams float64 `json:"limit_grams"`
	Ratio      float64 `json:"ratio"`
	Percent    float64 `json:"percent"`
}

// Impact converts counters into physical and monetary estimates.
type Impact struct {
	WaterLiters    float64 `json:"water_liters"`
	ElectricityWh  float64 `json:"electricity_wh"`
	Co2Kg          float64 `json:"co2_kg"`
	WaterCost      float64 `json:"water_cost_yen"`
	ElectricityYen float64 `json:"electricity_cost_yen"`
}

// Summary is the aggregated view shown by the dashboard and CLI.
type Summary struct {
	Totals   Totals          `json:"totals"`
	Impact   Impact          `json:"impact"`
	Today    DaySummary      `json:"today"`
	Budget   BudgetStatus    `json:"budget"`
	Settings config.Settings `json:"settings"`
}

// DaySummary holds one day's counters and impact.
type DaySummary struct {
	Date     string  `json:"date"`
	Requests int     `json:"requests"`
	Tokens   int     `json:"tokens"`
	Co2Grams float64 `json:"co2_grams"`
}

// Export is every persisted counter.
type Export struct {
	Totals Totals               `json:"totals"`
	Daily  map[string]DayBucket `json:"daily"`
}

// ComputeImpact applies the conversion constants in s to the counters.
func ComputeImpact(requests, tokens int, s config.Settings) Impact {
	water := float64(tokens) * s.MlPerToken / 1000
	wh := float64(requests) * s.WhPerRequest
	return Impact{
		WaterLiters:    water,
		ElectricityWh:  wh,
		Co2Kg:          wh / 1000 * s.KgCo2PerKwh,
		WaterCost:      water * s.YenPerM3 / 1000,
		ElectricityYen: wh * s.YenPerKwh / 1000,
	}
}

// Co2Grams estimates grams of CO2 emitted by requests.
func Co2Grams(requests int, s config.Settings) float64 {
	return float64(requests) * s.WhPerRequest * s.KgCo2PerKwh
}

// BudgetStatus reads today's bucket and reports it against dailyLimitGrams.
// A non-positive limit yields a zero ratio. It never mutates the store.
func (a *Aggregator) BudgetStatus(ctx context.Context, dailyLimitGrams float64) (BudgetStatus, error) {
	day, b, err := a.Today(ctx)
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("stats.BudgetStatus: %w", err)
	}
	st := BudgetStatus{
		Date:       day,
		Requests:   b.Requests,
		Co2Grams:   Co2Grams(b.Requests, a.settings.Get()),
		LimitGrams: dailyLimitGrams,
	}
	if dailyLimitGrams > 0 {
		st.Ratio = st.Co2Grams / dailyLimitGrams
		st.Percent = st.Ratio * 100
	}
	return st, nil
}

// Summary assembles totals, impact, today's bucket and budget status.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	s := a.settings.Get()
	totals, err := a.Totals(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("stats.Summary: %w", err)
	}
	budget, err := a.BudgetStatus(ctx, s.DailyLimitCo2Grams)
	if err != nil {
		return Summary{}, fmt.Errorf("stats.Summary: %w", err)
	}
	day, b, err := a.Today(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("stats.Summary: %w", err)
	}
	return Summary{
		Totals:   totals,
		Impact:   ComputeImpact(totals.Requests, totals.Tokens, s),
		Today:    DaySummary{Date: day, Requests: b.Requests, Tokens: b.Tokens, Co2Grams: Co2Grams(b.Requests, s)},
		Budget:   budget,
		Settings: s,
	}, nil
}

// History returns up to limit day summaries, newest first. limit <= 0 means all.
func (a *Aggregator) History(ctx context.Context, limit int) ([]DaySummary, error) {
	daily, err := a.Daily(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats.History: %w", err)
	}
	s := a.settings.Get()
	days := make([]DaySummary, 0, len(daily))
	for day, b := range daily {
		days = append(days, DaySummary{Date: day, Requests: b.Requests, Tokens: b.Tokens, Co2Grams: Co2Grams(b.Requests, s)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// Export returns the totals and every day bucket.
func (a *Aggregator) Export(ctx context.Context) (Export, error) {
	totals, err := a.Totals(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("stats.Export: %w", err)
	}
	daily, err := a.Daily(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("stats.Export: %w", err)
	}
	return Export{Totals: totals, Daily: daily}, nil
}
