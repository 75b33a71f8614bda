package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"carteira/internal/amqp"
	"carteira/internal/backend"
	"carteira/internal/cli"
	apphttp "carteira/internal/http"
	"carteira/internal/ledger"
	"carteira/internal/services"
)

func main() {
	logger, cfg := cli.Bootstrap("carteira")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.NewFactory(logger).CreateCollaborator(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// The AMQP broker is optional: without it mutations still succeed, they
	// are just not mirrored to the spreadsheet worker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event mirroring", "error", err)
			amqpClient = nil
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	store := ledger.New(result.Collaborator)
	service := services.NewLedgerService(store, amqpClient)
	defer service.Close()

	if err := service.Hydrate(ctx, cfg.UserID); err != nil {
		// The server starts anyway; /readyz reports hydrating until the
		// resync loop manages to reach the collaborator.
		logger.Warn("Initial hydration failed", "error", err, "user_id", cfg.UserID)
	} else {
		logger.Info("Ledger hydrated", "user_id", cfg.UserID, "transactions", len(store.Transactions()))
	}

	srv := apphttp.NewServer(":"+cfg.Port, service, apphttp.Options{
		UserID:           cfg.UserID,
		InitialPageSize:  cfg.InitialPageSize,
		PageIncrement:    cfg.PageIncrement,
		SummaryCacheSize: cfg.SummaryCacheSize,
		SummaryCacheTTL:  cfg.SummaryCacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	processor := services.NewResyncProcessor(service, services.ResyncProcessorConfig{
		PollInterval: cfg.ResyncInterval,
		BatchSize:    cfg.ResyncBatchSize,
	})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start resync processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server listening", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Resync processor shutdown failed", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
