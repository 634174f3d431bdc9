package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tandem/internal/daemon"
	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/services/kosync"
	"tandem/internal/syncer"
	"tandem/internal/transcribe"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	absClient := audiobookshelf.New(cfg)
	koClient := kosync.New(cfg)
	scribe := transcribe.NewService(cfg, logger)
	engine := syncer.NewEngine(cfg, store, absClient, koClient, scribe, logger)

	d, err := daemon.New(cfg, store, engine, logger,
		daemon.Check{
			Name: "audiobookshelf",
			Run: func(ctx context.Context) error {
				_, err := absClient.CheckConnection(ctx)
				return err
			},
		},
		daemon.Check{Name: "kosync", Run: koClient.CheckConnection},
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("tandem daemon shutting down")
	d.Stop()
	return nil
}
