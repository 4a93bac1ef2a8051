package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/songrelay/internal/server"
	"github.com/desertthunder/songrelay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP relay until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("host") {
		r.config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port := int(cmd.Int("port"))
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: --port %d out of range", shared.ErrInvalidFlag, port)
		}
		r.config.Server.Port = port
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	var metrics *server.Metrics
	if r.config.Server.Metrics {
		metrics = server.NewMetrics()
	}

	router := server.NewRouter(server.Options{
		Library:   lib,
		Logger:    r.logger,
		Metrics:   metrics,
		PublicURL: r.config.Server.PublicURL,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting relay",
		"folder", lib.FolderID(),
		"store", r.store.Name(),
		"metrics", metrics != nil,
	)
	for _, route := range router.Routes() {
		r.logger.Debug("route", "pattern", route)
	}

	srv := server.NewServer(r.config.Addr(), router, r.logger, r.config.Server.ShutdownTimeout)
	return srv.Run(ctx)
}
