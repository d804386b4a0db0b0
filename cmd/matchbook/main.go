package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/matchbook/internal/config"
	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/handler"
	"github.com/efreitasn/matchbook/internal/service"
	"github.com/efreitasn/matchbook/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, logCloser := config.NewLogger(cfg, os.Stdout)
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Stores.
	instruments := store.NewInstrumentRegistry()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	symbols := domain.NewSymbolRegistry()

	instrumentSvc := service.NewInstrumentService(instruments, symbols, logger)
	if err := bootstrapInstruments(cfg, instrumentSvc, logger); err != nil {
		logger.Error("failed to load instruments", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Engine.
	books := engine.NewBookManager()
	matcher := engine.NewMatcher(books, instruments, orderStore, tradeStore, logger, cfg.RematchDependents)

	orderSvc := service.NewOrderService(matcher)
	marketSvc := service.NewMarketService(matcher, tradeStore)

	router := handler.NewRouter(orderSvc, instrumentSvc, marketSvc, logger)

	// Start the rematch scheduler with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.NewRematchScheduler(cfg.ProcessInterval, matcher, logger).Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the scheduler).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

// bootstrapInstruments registers the instruments file, if any. A missing
// file leaves the registry empty so instruments can be added over HTTP.
func bootstrapInstruments(cfg *config.Config, svc *service.InstrumentService, logger *slog.Logger) error {
	if cfg.InstrumentsFile == "" {
		return nil
	}
	defs, err := config.LoadInstruments(cfg.InstrumentsFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("instruments file not found, starting empty",
			slog.String("path", cfg.InstrumentsFile),
		)
		return nil
	}
	if err != nil {
		return err
	}
	return svc.Bootstrap(defs)
}
