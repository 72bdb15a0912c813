package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/infimum-network/infimum/engine"
	hostadapterhttp "github.com/infimum-network/infimum/hostadapter/http"
	"github.com/infimum-network/infimum/hostadapter/metrics"
	"github.com/infimum-network/infimum/storage"
	"github.com/infimum-network/infimum/storage/memory"
	"github.com/infimum-network/infimum/storage/postgres"

	"github.com/prometheus/client_golang/prometheus"
)

func serveCmd() *cobra.Command {
	var addr string
	var dsn string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP host adapter",
		Long: `serve boots the engine over a storage backend (in-memory by default,
or Postgres when --dsn is supplied) and exposes it over HTTP, WebSocket, and
a Prometheus /metrics endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("infimumd: build logger: %w", err)
			}
			defer logger.Sync()

			store, closeStore, err := openStore(cmd, dsn, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			e := engine.New(store, logger)
			metrics.New(prometheus.DefaultRegisterer).Observe(e)

			srv := hostadapterhttp.New(e, logger)
			logger.Info("infimumd serving", zap.String("addr", addr))
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string; empty uses an in-memory store")
	return cmd
}

func openStore(cmd *cobra.Command, dsn string, logger *zap.Logger) (storage.Store, func(), error) {
	if dsn == "" {
		logger.Info("using in-memory storage")
		return memory.New(), func() {}, nil
	}

	ctx := cmd.Context()
	pg, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("infimumd: connect postgres: %w", err)
	}
	if err := pg.InitSchema(ctx); err != nil {
		return nil, nil, fmt.Errorf("infimumd: init schema: %w", err)
	}
	logger.Info("using postgres storage")
	return pg, pg.Close, nil
}
