package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	imagehandler "github.com/PrzemekMalak/serverless-image-handler"
)

func newServeCmd() *cobra.Command {
	var (
		addr string
		alb  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve images over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			handler, logger, err := setup(reg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			server := imagehandler.NewServer(handler, logger)
			server.ALB = alb

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.Handle("/", server)

			logger.Infow("imagehandler listening",
				"addr", addr,
				"alb", alb,
			)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "TCP address to listen on")
	cmd.Flags().BoolVar(&alb, "alb", false, "present requests as load balancer events")
	return cmd
}
