// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/muxfs/lib/clock"
	"github.com/bureau-foundation/muxfs/lib/config"
	"github.com/bureau-foundation/muxfs/lib/mux"
	muxfuse "github.com/bureau-foundation/muxfs/lib/mux/fuse"
	"github.com/bureau-foundation/muxfs/lib/service"
)

// mountFlags holds the raw flag values for "muxfs mount". Each one
// overrides the config file only when given on the command line.
type mountFlags struct {
	configPath     string
	mountpoint     string
	maxPoints      int
	maxReaders     int
	maxPathLength  int
	pipeBufferSize int
	allowOther     bool
	statusSocket   string
	logLevel       string
	logFormat      string
}

func newMountFlagSet(flags *mountFlags) *pflag.FlagSet {
	defaults := mux.DefaultLimits()
	flagSet := pflag.NewFlagSet("muxfs mount", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "path to muxfs.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.mountpoint, "mountpoint", "", "directory to mount on (may also be given as the first argument)")
	flagSet.IntVar(&flags.maxPoints, "max-points", defaults.MaxPoints, "maximum number of simultaneously live mux points")
	flagSet.IntVar(&flags.maxReaders, "max-readers", defaults.MaxReaders, "maximum number of readers per mux point")
	flagSet.IntVar(&flags.maxPathLength, "max-path-length", defaults.MaxPathLength, "path buffer size; paths must be shorter than this")
	flagSet.IntVar(&flags.pipeBufferSize, "pipe-buffer-size", 0, "per-reader pipe capacity in bytes (0 keeps the kernel default)")
	flagSet.BoolVar(&flags.allowOther, "allow-other", false, "allow other users to access the mount (requires user_allow_other)")
	flagSet.StringVar(&flags.statusSocket, "status-socket", "", "Unix socket path for the status service (empty disables)")
	flagSet.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.StringVar(&flags.logFormat, "log-format", "text", "log format: text or json")
	return flagSet
}

// loadMountConfig parses args and returns the validated configuration:
// the config file (if any) with command-line flags applied on top.
func loadMountConfig(args []string) (*config.Config, error) {
	var flags mountFlags
	flagSet := newMountFlagSet(&flags)
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagSet.Changed("mountpoint") {
		cfg.Mountpoint = flags.mountpoint
	}
	if flagSet.Changed("max-points") {
		cfg.Limits.MaxPoints = flags.maxPoints
	}
	if flagSet.Changed("max-readers") {
		cfg.Limits.MaxReaders = flags.maxReaders
	}
	if flagSet.Changed("max-path-length") {
		cfg.Limits.MaxPathLength = flags.maxPathLength
	}
	if flagSet.Changed("pipe-buffer-size") {
		cfg.PipeBufferSize = flags.pipeBufferSize
	}
	if flagSet.Changed("allow-other") {
		cfg.AllowOther = flags.allowOther
	}
	if flagSet.Changed("status-socket") {
		cfg.StatusSocket = flags.statusSocket
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}

	switch positional := flagSet.Args(); len(positional) {
	case 0:
	case 1:
		if flagSet.Changed("mountpoint") {
			return nil, fmt.Errorf("mountpoint given both as --mountpoint and as an argument")
		}
		cfg.Mountpoint = positional[0]
	default:
		return nil, fmt.Errorf("unexpected arguments after mountpoint: %v", positional[1:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runMount(args []string) error {
	cfg, err := loadMountConfig(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry, err := mux.NewRegistry(mux.Options{
		Limits:         cfg.Limits.Mux(),
		PipeBufferSize: cfg.PipeBufferSize,
		Clock:          clock.Real(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := muxfuse.Mount(muxfuse.Options{
		Mountpoint: cfg.Mountpoint,
		Registry:   registry,
		AllowOther: cfg.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	statusDone := make(chan error, 1)
	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()
	if cfg.StatusSocket != "" {
		socketServer := service.NewSocketServer(cfg.StatusSocket, logger)
		registerStatusActions(socketServer, registry)
		go func() { statusDone <- socketServer.Serve(statusCtx) }()
	} else {
		statusDone <- nil
	}

	// SIGUSR1 would terminate the process by default. Log the registry
	// instead so operators can inspect a mount without a status socket.
	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	defer signal.Stop(dump)

	unmounted := make(chan struct{})
	go func() {
		server.Wait()
		close(unmounted)
	}()

	logger.Info("muxfs mounted",
		"mountpoint", cfg.Mountpoint,
		"max_points", cfg.Limits.MaxPoints,
		"max_readers", cfg.Limits.MaxReaders,
		"max_path_length", cfg.Limits.MaxPathLength,
		"status_socket", cfg.StatusSocket,
	)

	for running := true; running; {
		select {
		case <-dump:
			logSnapshot(logger, registry.Snapshot())
		case <-ctx.Done():
			logger.Info("shutting down", "mountpoint", cfg.Mountpoint)
			if err := server.Unmount(); err != nil {
				logger.Error("unmount failed", "mountpoint", cfg.Mountpoint, "error", err)
			}
			<-unmounted
			running = false
		case <-unmounted:
			logger.Info("filesystem unmounted externally", "mountpoint", cfg.Mountpoint)
			running = false
		}
	}

	stopStatus()
	if err := <-statusDone; err != nil {
		return fmt.Errorf("status socket: %w", err)
	}
	return nil
}

func logSnapshot(logger *slog.Logger, snapshot mux.Snapshot) {
	logger.Info("registry snapshot",
		"points", len(snapshot.Points),
		"max_points", snapshot.Limits.MaxPoints,
	)
	for _, point := range snapshot.Points {
		logger.Info("mux point",
			"index", point.Index,
			"path", point.Path,
			"refcount", point.Refcount,
			"readers", point.Readers,
			"created_at", point.CreatedAt,
		)
	}
}
