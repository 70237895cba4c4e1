package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/api"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/notify"
	"github.com/dd0wney/cluso-graphview/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP, GraphQL and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx := cmd.Context()

			loader, err := a.loader(ctx)
			if err != nil {
				return err
			}

			var publisher *notify.Publisher
			if a.cfg.Notify.Address != "" {
				publisher, err = notify.NewPublisher(a.cfg.Notify.Address, a.logger, a.metrics)
				if err != nil {
					return err
				}
				defer publisher.Close()
			}

			srv, err := api.NewServer(api.Options{
				Config:    a.cfg,
				Loader:    loader,
				Logger:    a.logger,
				Metrics:   a.metrics,
				Publisher: publisher,
				Version:   version,
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			// a failed first load still serves; /health/ready reports it
			if _, err := srv.Reload(ctx); err != nil {
				a.logger.Error("initial load failed", logging.Error(err))
			}

			refreshCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go srv.Refresh(refreshCtx, a.cfg.Source.Refresh)

			gs := server.NewGracefulServer(a.cfg.Server.Addr, srv.Handler(), a.logger)
			gs.SetShutdownTimeout(shutdownTimeout)
			gs.RegisterOnShutdown(srv.CloseSessions)
			gs.SetReloadFunc(func(ctx context.Context) error {
				_, err := srv.Reload(ctx)
				if errors.Is(err, api.ErrNoSource) {
					return nil
				}
				return err
			})

			a.logger.Info("graphview starting",
				logging.String("version", version),
				logging.String("addr", a.cfg.Server.Addr),
				logging.Source(loader.Source().Name()))
			return gs.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", server.DefaultShutdownTimeout, "How long to drain connections on shutdown")
	return cmd
}
