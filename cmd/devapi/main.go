package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/config"
	"github.com/SAP-F-2025/portfolio-quiz/internal/devapi"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)

	var opts []devapi.Option
	if cfg.DevAPIToken != "" {
		opts = append(opts, devapi.WithToken(cfg.DevAPIToken))
	}
	api := devapi.New(logger, opts...)

	srv := &http.Server{
		Addr:              ":" + cfg.DevAPIPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Dev API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev API stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Dev API shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Dev API stopped")
}
