// ecowatch: usage and environmental-impact monitor for AI chat pages.
// Entry point: wires all packages and exposes the CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/ecowatch/internal/api"
	"github.com/yourusername/ecowatch/internal/auth"
	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/db"
	"github.com/yourusername/ecowatch/internal/ingest"
	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/notify"
	"github.com/yourusername/ecowatch/internal/observer"
	"github.com/yourusername/ecowatch/internal/platform"
	"github.com/yourusername/ecowatch/internal/scheduler"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/stats"
	"github.com/yourusername/ecowatch/internal/store"
	"github.com/yourusername/ecowatch/internal/telegram"
	"github.com/yourusername/ecowatch/internal/tokenizer"
	"github.com/yourusername/ecowatch/internal/webhook"
	"github.com/yourusername/ecowatch/internal/wizard"
	"github.com/yourusername/ecowatch/internal/ws"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "ecowatch",
		Short:         "Track AI chat usage and its water, power and CO2 footprint",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), replayCmd(), statsCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("ecowatch: %v", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: relay ingest, dashboard socket and REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	log.Printf("ecowatch %s starting…", Version)

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg := config.Load()
	log.Printf("Config: port=%s workDir=%s flush=%s", cfg.Port, cfg.WorkDir, cfg.FlushInterval)
	if cfg.AdminToken == "changeme" {
		log.Println("⚠  ADMIN_TOKEN is the built-in default; set it before exposing the API.")
	}

	// Root context, cancelled on shutdown signal.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 2. Open storage ──────────────────────────────────────────────────────
	database, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	log.Printf("Database ready: %s", cfg.DBPath)

	// ── 3. Live settings ─────────────────────────────────────────────────────
	settings, err := loadSettings(ctx, st)
	if err != nil {
		return err
	}
	live := config.NewLive(settings)
	unsubscribe := st.Subscribe(func(changes map[string]store.Change) {
		if c, ok := changes[store.KeySettings]; ok {
			live.Set(config.DecodeSettings(c.NewValue))
		}
	})
	defer unsubscribe()

	// ── 4. Site adapters ─────────────────────────────────────────────────────
	sites, err := site.Load(cfg.SitesFile)
	if err != nil {
		return err
	}
	log.Printf("Site adapters: %d", len(sites.Definitions()))

	// ── 5. Stats aggregator ──────────────────────────────────────────────────
	agg := stats.New(st, live)

	// ── 6. WebSocket hub ─────────────────────────────────────────────────────
	hub := ws.NewHub()

	// ── 7. Telegram bot ──────────────────────────────────────────────────────
	bot, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, telegram.NewCommandHandler(agg))
	if err != nil {
		log.Printf("Telegram init error (continuing without Telegram): %v", err)
	}

	// ── 8. Notify + Webhook dispatchers ─────────────────────────────────────
	hooks := webhook.New(webhook.ParseTargets(cfg.WebhookURLs))
	notifier := notify.New(telegramSender(bot), hooks)

	// ── 9. Relay ingest ──────────────────────────────────────────────────────
	relay := ingest.New(ctx, observer.Deps{
		Sites:    sites,
		Settings: live,
		Sink:     agg,
		Avoided:  agg,
	}, hub)

	// ── 10. Budget governor ──────────────────────────────────────────────────
	governor := tokenizer.NewGovernor(agg, live, intent.Multi(hub, relay), notifier)

	// ── 11. Flush scheduler ──────────────────────────────────────────────────
	sched := scheduler.New(agg, cfg.FlushInterval,
		func(ctx context.Context, _ stats.Delta) { governor.CheckBudget(ctx) },
		func(ctx context.Context, _ stats.Delta) {
			if sum, err := agg.Summary(ctx); err == nil {
				hub.BroadcastStats(sum)
			}
		},
	)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ── 12. HTTP router ──────────────────────────────────────────────────────
	guard, err := auth.NewGuard(cfg.AdminToken)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	api.SetupRoutes(mux, &api.Deps{
		Stats:     agg,
		Store:     st,
		Settings:  live,
		Sites:     sites,
		Hub:       hub,
		Ingest:    relay,
		Scheduler: sched,
		Webhook:   hooks,
		Notify:    notifier,
		Guard:     guard,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      loggingMiddleware(recoveryMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── 13. Run ──────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if bot != nil {
		g.Go(func() error {
			bot.Start(gctx)
			return nil
		})
		log.Printf("Telegram bot started (chatID=%d)", cfg.TelegramChatID)
	}
	if cfg.SettingsFile != "" {
		g.Go(func() error {
			watchSettings(gctx, cfg.SettingsFile, live, st)
			return nil
		})
		log.Printf("Watching settings file: %s", cfg.SettingsFile)
	}
	g.Go(func() error {
		log.Printf("ecowatch listening on http://0.0.0.0:%s", cfg.Port)
		wizard.PrintEndpoints(os.Stdout, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
		sched.Stop(shutdownCtx)
		agg.Wait()
		hooks.Wait()
		return nil
	})

	err = g.Wait()
	log.Printf("ecowatch stopped.")
	return err
}

// watchSettings keeps the stored settings in sync with path. A watcher that
// cannot start is logged; the daemon keeps running on the stored settings.
func watchSettings(ctx context.Context, path string, live *config.Live, st store.KV) {
	err := config.WatchSettingsFile(ctx, path, func(overrides map[string]any) error {
		merged := config.MergeOnto(live.Get(), overrides)
		return st.Set(ctx, map[string]any{store.KeySettings: merged})
	})
	if err != nil {
		log.Printf("settings watcher disabled: %v", err)
	}
}

// openStore ensures the work directory, opens the database and migrates it.
func openStore(cfg *config.Config) (*db.DB, *store.Store, error) {
	if err := platform.EnsureDir(cfg.WorkDir); err != nil {
		return nil, nil, fmt.Errorf("EnsureDir %s: %w", cfg.WorkDir, err)
	}
	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, store.New(database), nil
}

// loadSettings reads the stored settings merged over the defaults.
func loadSettings(ctx context.Context, st *store.Store) (config.Settings, error) {
	vals, err := st.Get(ctx, store.KeySettings)
	if err != nil {
		return config.Settings{}, err
	}
	return config.DecodeSettings(vals[store.KeySettings]), nil
}

// loggingMiddleware logs each request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				log.Printf("panic: %v", rv)
				http.Error(w, `{"success":false,"error":"internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// telegramSender wraps *telegram.Bot to implement notify.Sender.
// Returns nil if bot is nil (Telegram disabled).
func telegramSender(bot *telegram.Bot) notify.Sender {
	if bot == nil {
		return nil
	}
	return bot
}
