package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone"
	"github.com/yeet-yoink/yeet-yoink/pkg/config"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch/accessor"
	"github.com/yeet-yoink/yeet-yoink/pkg/httpapi"
	"github.com/yeet-yoink/yeet-yoink/pkg/metrics"
	"github.com/yeet-yoink/yeet-yoink/pkg/rendezvous"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relay's HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd.Context())
	},
}

// runStart wires every long-lived component and blocks until SIGINT/SIGTERM:
// load config, init logging, construct collaborators bottom-up, fork a
// rendezvous guard per background loop, serve, then wait on the barrier
// during shutdown instead of guessing how long teardown takes.
func runStart(ctx context.Context) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.InitRegistry()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bb := backbone.New(ctx, backbone.Config{
		TempDir: cfg.Server.TempDir,
		Lease:   cfg.Lease.Duration,
		Meter:   m,
		Active:  m,
	})

	backends, err := config.BuildBackends(ctx, cfg.Backends)
	if err != nil {
		return fmt.Errorf("build backends: %w", err)
	}

	bridge := accessor.New()
	bridge.Install(bb)
	dispatcher := dispatch.New(backends, bridge)
	bb.SetDispatchChannel(dispatcher.Commands())

	rz := rendezvous.New()
	readiness := httpapi.NewReadiness()

	backboneGuard := rz.Fork()
	go func() {
		defer backboneGuard.Completed()
		bb.Run()
	}()
	readiness.SetBackboneReady(true)

	dispatchGuard := rz.Fork()
	go func() {
		defer dispatchGuard.Completed()
		dispatcher.Run(ctx)
	}()
	readiness.SetDispatcherReady(true)
	readiness.SetAcceptingUploads(true)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpapi.Deps{
		Backbone:          bb,
		Metrics:           m,
		Readiness:         readiness,
		MaxFileNameLength: cfg.Lease.MaxFileNameLength,
		RequestTimeout:    cfg.Server.WriteTimeout,
		TriggerShutdown:   stop,
	})

	serverGuard := rz.Fork()
	serverErr := make(chan error, 1)
	go func() {
		defer serverGuard.Completed()
		serverErr <- server.Start(ctx)
	}()

	logger.Info("yeetyoink started", "address", server.Addr(), "backends", len(backends))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server exited with error", "error", err)
		}
	}

	stop()
	rz.Wait()

	logger.Info("yeetyoink stopped")
	return nil
}
