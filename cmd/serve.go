package main

import (
	"context"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/server"
)

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	catalogs, err := r.buildCatalogs(ctx, nil)
	if err != nil {
		return err
	}
	engine := r.newEngine(catalogs, false, false)

	addr := cmd.String("addr")
	if addr == "" {
		sc := r.cfg().Server
		addr = net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	}

	router := server.NewRouter(server.RouterOpts{
		API:    server.NewAPI(engine, r.playlists, r.logger),
		Logger: r.logger,
	})
	return server.Serve(ctx, addr, router, r.logger)
}
