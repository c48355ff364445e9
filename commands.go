package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/observer"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/stats"
	"github.com/yourusername/ecowatch/internal/tokenizer"
	"github.com/yourusername/ecowatch/internal/wizard"
)

func replayCmd() *cobra.Command {
	var sitesFile string
	cmd := &cobra.Command{
		Use:   "replay <frames.ndjson>",
		Short: "Feed recorded relay frames through one session and print the result",
		Long: "Reads one JSON relay frame per line (use - for stdin), runs them through a\n" +
			"session with default settings and prints every intent plus the counted usage.\n" +
			"Nothing is persisted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			sites, err := site.Load(sitesFile)
			if err != nil {
				return err
			}
			return replay(in, cmd.OutOrStdout(), sites)
		},
	}
	cmd.Flags().StringVar(&sitesFile, "sites", "", "YAML file with extra site adapters")
	return cmd
}

// tally sums enqueued deltas and avoided counts for replay.
type tally struct {
	stats.Delta
	Avoided int `json:"avoided"`
}

func (t *tally) Enqueue(requests, tokens int) {
	t.Requests += requests
	t.Tokens += tokens
}

func (t *tally) RecordAvoided() { t.Avoided++ }

func replay(in io.Reader, out io.Writer, sites *site.Table) error {
	enc := json.NewEncoder(out)
	t := &tally{}
	sess := observer.NewSession(observer.Deps{
		Sites:    sites,
		Settings: config.NewLive(config.DefaultSettings()),
		Sink:     t,
		Avoided:  t,
		Presenter: intent.PresenterFunc(func(it intent.Intent) {
			_ = enc.Encode(it)
		}),
	})

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 8<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var f observer.Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := sess.Handle(f); err != nil {
			fmt.Fprintf(out, "line %d: %v\n", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	c := sess.Counters()
	fmt.Fprintf(out, "\nrequests=%d tokens=%d avoided=%d batches=%d records=%d skipped=%d\n",
		t.Requests, t.Tokens, t.Avoided, c.Batches, c.Records, c.Skipped)
	return nil
}

func statsCmd() *cobra.Command {
	var (
		asJSON  bool
		history bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the stored totals, impact and budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAggregator(cmd.Context(), func(ctx context.Context, agg *stats.Aggregator) error {
				out := cmd.OutOrStdout()
				if history {
					days, err := agg.History(ctx, limit)
					if err != nil {
						return err
					}
					if asJSON {
						return json.NewEncoder(out).Encode(days)
					}
					printHistory(out, days)
					return nil
				}
				sum, err := agg.Summary(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(out).Encode(sum)
				}
				printSummary(out, sum)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&history, "history", false, "print per-day history instead of the summary")
	cmd.Flags().IntVar(&limit, "limit", 7, "days of history (0 = all)")
	return cmd
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Zero the stored counters and daily history (settings are kept)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				if !wizard.IsInteractive() {
					return fmt.Errorf("refusing to reset without --yes on a non-interactive stdin")
				}
				if !wizard.Confirm(os.Stdin, cmd.OutOrStdout(), "Reset all statistics?") {
					fmt.Fprintln(cmd.OutOrStdout(), wizard.Color(wizard.Red, "  Aborted."))
					return nil
				}
			}
			return withAggregator(cmd.Context(), func(ctx context.Context, agg *stats.Aggregator) error {
				if err := agg.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), wizard.Color(wizard.Green, "  ✓ Statistics reset"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// withAggregator opens the configured store for a one-shot command.
func withAggregator(ctx context.Context, fn func(context.Context, *stats.Aggregator) error) error {
	cfg := config.Load()
	database, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	settings, err := loadSettings(ctx, st)
	if err != nil {
		return err
	}
	return fn(ctx, stats.New(st, config.NewLive(settings)))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

func printSummary(w io.Writer, s stats.Summary) {
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	content := headerStyle.Render("ecowatch: usage footprint") + "\n\n"
	content += row("Requests", fmt.Sprintf("%d", s.Totals.Requests))
	content += row("Tokens", fmt.Sprintf("%d", s.Totals.Tokens))
	content += row("Avoided", fmt.Sprintf("%d", s.Totals.Avoided))
	content += "\n"
	content += row("Water", fmt.Sprintf("%.3f L (¥%.2f)", s.Impact.WaterLiters, s.Impact.WaterCost))
	content += row("Electricity", fmt.Sprintf("%.2f Wh (¥%.2f)", s.Impact.ElectricityWh, s.Impact.ElectricityYen))
	content += row("CO2", fmt.Sprintf("%.4f kg", s.Impact.Co2Kg))
	content += "\n"
	content += dimStyle.Render(fmt.Sprintf("Today %s: %d requests, %.2f g CO2", s.Today.Date, s.Today.Requests, s.Today.Co2Grams))
	if s.Budget.LimitGrams > 0 {
		zone := tokenizer.ZoneFor(s.Budget.Percent)
		zoneStyle := lipgloss.NewStyle().Bold(true).Foreground(zoneColor(zone))
		content += "\n" + labelStyle.Render("Budget") +
			zoneStyle.Render(zone.String()) +
			valueStyle.Render(fmt.Sprintf(" %.0f%% of %.0f g", s.Budget.Percent, s.Budget.LimitGrams))
	}
	fmt.Fprintln(w, boxStyle.Render(content))
}

func printHistory(w io.Writer, days []stats.DaySummary) {
	colDate := lipgloss.NewStyle().Width(14)
	colNum := lipgloss.NewStyle().Width(12)

	fmt.Fprintln(w, dimStyle.Render(
		colDate.Render("Date")+
			colNum.Render("Requests")+
			colNum.Render("Tokens")+
			colNum.Render("CO2 (g)"),
	))
	for _, d := range days {
		fmt.Fprintln(w, valueStyle.Render(
			colDate.Render(d.Date)+
				colNum.Render(fmt.Sprintf("%d", d.Requests))+
				colNum.Render(fmt.Sprintf("%d", d.Tokens))+
				colNum.Render(fmt.Sprintf("%.2f", d.Co2Grams)),
		))
	}
}

func zoneColor(z tokenizer.BudgetZone) lipgloss.Color {
	switch z {
	case tokenizer.ZoneRed:
		return lipgloss.Color("196")
	case tokenizer.ZoneOrange:
		return lipgloss.Color("208")
	case tokenizer.ZoneYellow:
		return lipgloss.Color("226")
	default:
		return lipgloss.Color("34")
	}
}
