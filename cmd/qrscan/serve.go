package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/qrscan/internal/grpcapi"
	"github.com/BrandonDHaskell/qrscan/internal/httpapi"
	"github.com/BrandonDHaskell/qrscan/internal/qrcode"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, gRPC health and the history pruner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	cfg, logger := c.cfg, c.logger

	var (
		health     *grpcapi.Server
		onPersist  func(error)
		grpcListen net.Listener
	)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		grpcListen = lis
		health = grpcapi.NewServer(logger.Named("grpc"))
		onPersist = health.SetPersistErr
	}

	a, err := c.open(ctx, onPersist)
	if err != nil {
		if grpcListen != nil {
			_ = grpcListen.Close()
		}
		return err
	}
	defer a.Close()

	// A history that failed to load starts degraded before the hook could
	// report it.
	if health != nil {
		health.SetPersistErr(a.history.PersistErr())
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger.Named("http"),
		Addr:        cfg.HTTPAddr,
		History:     a.history,
		Preferences: a.prefs,
		Generator:   service.NewGenerator(qrcode.NewEncoder()),
		DefaultSize: cfg.GeneratorSize,
	})

	pruner := service.NewHistoryPruner(a.history, service.PrunerConfig{
		RetentionDays: cfg.HistoryRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.Named("pruner"))
	pruner.Start(ctx)
	defer pruner.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	if health != nil {
		g.Go(func() error {
			if err := health.Serve(grpcListen); err != nil {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if health != nil {
			health.Stop()
		}
		return err
	})

	return g.Wait()
}
