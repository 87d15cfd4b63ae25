package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	backfill := flag.Bool("backfill", false, "mirror every stored transaction before consuming events")
	flag.Parse()
	os.Exit(run(*backfill))
}

// run returns the process exit code so deferred cleanup always happens.
func run(backfill bool) int {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting ledger-worker", "mirror", cfg.MirrorBackend, log.FieldOperation, log.OpStartup)

	store := cli.OpenStore(context.Background(), logger, cfg)
	defer store.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		return 1
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err)
		return 1
	}
	if mirror.Cleanup != nil {
		defer mirror.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return 1
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(store, mirror.Mirror, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	g, gctx := errgroup.WithContext(ctx)
	if backfill {
		g.Go(func() error {
			if _, err := w.Backfill(gctx, store); err != nil && !errors.Is(err, context.Canceled) {
				// a partial backfill is retried on the next start
				logger.Error("Backfill failed", log.FieldError, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return amqpClient.ConsumeTransactionEvents(gctx, w.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
	return 0
}
