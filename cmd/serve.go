package main

import (
	"context"

	"github.com/desertthunder/aura/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	api := server.NewAPI(r.engine, r.dispatcher, r.logger)
	return server.Serve(ctx, addr, server.NewHandler(api), r.logger)
}
