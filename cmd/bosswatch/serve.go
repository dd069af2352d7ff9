package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
	"github.com/noahxzhu/bosswatch/internal/notifier/discord"
	"github.com/noahxzhu/bosswatch/internal/notifier/natsbus"
	"github.com/noahxzhu/bosswatch/internal/notifier/pushover"
	"github.com/noahxzhu/bosswatch/internal/sound"
	"github.com/noahxzhu/bosswatch/internal/telegram"
	"github.com/noahxzhu/bosswatch/internal/web"
	"github.com/noahxzhu/bosswatch/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard, countdown worker and notification sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			return e.serve()
		},
	}
}

func (e *env) serve() error {
	cfg, logger := e.cfg, e.logger
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Storage
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	provider := e.newProvider()
	hub := web.NewHub(web.DefaultHubConfig(), logger)
	player := sound.NewPlayer(hub, func() model.SoundSettings { return store.Profile().Sound }, nil, logger)

	// Init Sinks
	sinks := []notifier.Sink{notifier.LogSink{Logger: logger}, hub}
	if cfg.Pushover.Token != "" && cfg.Pushover.User != "" {
		sinks = append(sinks, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.User))
	}
	if cfg.Discord.WebhookURL != "" {
		sinks = append(sinks, discord.NewWebhook(cfg.Discord.WebhookURL))
	}
	if cfg.NATS.URL != "" {
		pub, err := natsbus.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			logger.Error("NATS unavailable, publishing disabled", "error", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}
	var bot *telegram.Bot
	if cfg.Telegram.Token != "" {
		bot, err = telegram.NewBot(cfg.Telegram.Token, logger)
		if err != nil {
			logger.Error("Telegram unavailable, bot disabled", "error", err)
		} else if len(cfg.Telegram.ChatIDs) > 0 {
			sinks = append(sinks, telegram.NewSink(bot.API(), cfg.Telegram.ChatIDs))
		}
	}

	dispatcher := notifier.NewDispatcher(store, logger, 64, sinks...)
	logger.Info("Notification sinks ready", "sinks", dispatcher.Sinks())

	// Init Worker
	w := worker.NewWorker(e.bosses, provider, store, dispatcher, player, hub, worker.Options{
		TickInterval:    cfg.Worker.TickInterval,
		RenderInterval:  cfg.Worker.RenderInterval,
		RefreshInterval: cfg.Offsets.RefreshInterval,
		Location:        cfg.Location(),
		Logger:          logger,
	})

	dispatcher.Start(ctx)
	go hub.Start(ctx)
	workerDone := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(workerDone)
	}()

	if bot != nil {
		router := telegram.NewRouter(bot.API(), logger, e.bosses, provider, nil, cfg.Location())
		go bot.Run(ctx, router)
	}

	// Init Web Server
	srv := web.NewServer(e.bosses, provider, store, w, hub, player, web.Config{
		CORSOrigins: cfg.Web.CORSOrigins,
		RateLimit:   cfg.Web.RateLimit,
		Location:    cfg.Location(),
		Logger:      logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "url", "http://localhost"+cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("HTTP server error", "error", err)
		cancel()
		closeHub(hub, logger)
		<-workerDone
		dispatcher.Wait()
		return err
	}

	slog.Info("Shutting down...")
	cancel() // Stop worker, hub, dispatcher and bot
	closeHub(hub, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-workerDone
	dispatcher.Wait()
	slog.Info("Server exited")
	return nil
}

// closeHub releases websocket clients, which Shutdown leaves open.
func closeHub(hub *web.Hub, logger *slog.Logger) {
	if err := hub.Close(); err != nil {
		logger.Error("Failed to close websocket hub", "error", err)
	}
}
