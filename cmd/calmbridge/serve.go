package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/calmbridge/internal/codec"
	"github.com/danielpatrickdp/calmbridge/internal/httpapi"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
	"github.com/danielpatrickdp/calmbridge/internal/script"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var httpAddr, grpcAddr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC coach services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if httpAddr != "" {
				cfg.HTTP.Addr = httpAddr
			}
			if grpcAddr != "" {
				cfg.GRPC.Addr = grpcAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cmd.Context(), c, dbPath)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC listen address (overrides config, empty in config disables)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	return cmd
}

func serve(ctx context.Context, c *cli, dbPath string) error {
	cfg, logger := c.cfg, c.logger

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	a, err := openApp(cfg, logger, dbPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Scripts.Watch && cfg.Scripts.Dir != "" {
		w, err := script.NewWatcher(cfg.Scripts.Dir, a.catalog, logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	var lis net.Listener
	if cfg.GRPC.Addr != "" {
		if lis, err = net.Listen("tcp", cfg.GRPC.Addr); err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(a.sessions, a.catalog, logger, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if lis != nil {
		grpcSrv, healthSrv := codec.NewGRPCServer(a.sessions, logger)
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			healthSrv.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	err = g.Wait()
	logger.Info("calmbridge stopped")
	return err
}
