package main

//
// HTTP gateway
//

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/server"
	"github.com/mohammed-shakir/adp-wfs-client/internal/metrics"
)

func serveSubcommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves WFS features over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}

			var mh http.Handler = http.NotFoundHandler()
			if a.cfg.MetricsEnabled {
				p := metrics.Init(metrics.Config{
					Build: metrics.BuildInfo{
						Version:   Version,
						Revision:  os.Getenv("BUILD_REVISION"),
						Branch:    os.Getenv("BUILD_BRANCH"),
						BuildDate: os.Getenv("BUILD_DATE"),
					},
				})
				mh = p.Handler()
			}

			a.log.Info("starting gateway",
				"addr", a.cfg.Addr,
				"version", Version,
				"wfs", c.Endpoint(),
				"wfs_version", c.Version(),
				"metrics", a.cfg.MetricsEnabled)
			return server.Run(ctx, a.cfg, a.log, server.NewHandler(a.log, c, mh))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}
