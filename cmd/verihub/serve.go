package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"verihub/internal/api"
	"verihub/internal/bot"
	"verihub/internal/config"
	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and Telegram bot",
	Long: `Starts the full service: opens the SQLite repository, seeds the tool
catalog on first boot, launches the headless browser, and serves the
dashboard API. The Telegram bot starts alongside when a token is
configured. SIGINT or SIGTERM triggers a graceful shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Seed(); err != nil {
		return err
	}

	renderer := docgen.NewRodRenderer(cfg.Browser)
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer renderer.Shutdown()

	client := sheerid.New(cfg.SheerID.ServicesURL, cfg.SheerID.StatusURL)
	gen := identity.New()
	orch := engine.NewOrchestrator(client, docgen.NewBuilder(renderer, gen), gen, cfg.SheerID.ServicesURL)
	sup := supervisor.New(st, orch, engine.NewPoller(client), client, gen, cfg.Economy)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.New(st, sup, client).Handler(),
	}

	go func() {
		if err := bot.Start(ctx, st, sup, cfg.Telegram, cfg.Economy); err != nil {
			logger.Error("telegram bot stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := config.Watch(ctx, configPath); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard api listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}
	return nil
}
