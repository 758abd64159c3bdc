// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jitaccess/jitaccess/internal/restapi"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JIT group-access HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			metrics := restapi.NewRequestMetrics(prometheus.DefaultRegisterer)
			handlers := restapi.NewHandlers(a.catalog, a.resolver, a.signer, nil)

			mux := http.NewServeMux()
			handlers.Mount(mux)
			mux.Handle("GET /metrics", promhttp.Handler())

			var handler http.Handler = mux
			handler = restapi.IdentityMiddleware(handler)
			handler = restapi.LoggingMiddleware(a.logger, metrics)(handler)

			server := restapi.New(restapi.Config{
				Addr:            addr,
				ReadTimeout:     a.cfg.BackendReadTimeout(),
				WriteTimeout:    a.cfg.BackendWriteTimeout(),
				ShutdownTimeout: restapi.DefaultShutdownTimeout,
			}, handler, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
