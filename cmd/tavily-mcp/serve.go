package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tavily-mcp/internal/adapter/mcpserver"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var transport, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over MCP (stdio or streamable HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			// stdout belongs to the MCP stream, so spans go to stderr.
			a, err := newApp(ctx, opts.configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.Close(shutdownCtx)
			}()

			if transport != "" {
				a.cfg.Server.Transport = transport
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			srv := mcpserver.NewServer(a.cfg.Server, version, a.dispatcher, a.logger)
			switch a.cfg.Server.Transport {
			case "stdio":
				return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
			case "http":
				return srv.ServeHTTP(ctx)
			default:
				return fmt.Errorf("unsupported transport %q (want stdio or http)", a.cfg.Server.Transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "override server.transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr for the http transport")
	return cmd
}
