package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bossrush/internal/config"
	"bossrush/internal/gateway"
	"bossrush/internal/repositories/parties"
	combatService "bossrush/internal/services/combat"
	partyService "bossrush/internal/services/party"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := parties.NewInMemoryRepository()
	hub := gateway.NewHub()

	partySvc := partyService.NewService(&partyService.ServiceConfig{
		Repository: repo,
		Publisher:  hub,
		MaxMembers: cfg.MaxPartySize,
	})
	combatSvc := combatService.NewService(&combatService.ServiceConfig{
		Repository: repo,
		Publisher:  hub,
	})

	handler := gateway.NewHandler(&gateway.HandlerConfig{
		Hub:           hub,
		PartyService:  partySvc,
		CombatService: combatSvc,
		PingInterval:  cfg.PingInterval,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.Handle("/healthz", gateway.HealthHandler())

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
