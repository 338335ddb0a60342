package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-sod/frsod/internal/buildinfo"
	frsod "github.com/go-sod/frsod/internal/config"
	"github.com/go-sod/frsod/internal/logging"
	"github.com/go-sod/frsod/internal/score"
	"github.com/go-sod/frsod/internal/server"
	"github.com/go-sod/frsod/internal/setup"
	"github.com/go-sod/frsod/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	defer done()

	if err := run(ctx); err != nil {
		logging.FromContext(ctx).Fatal(err)
	}
}

func run(ctx context.Context) error {
	config := frsod.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			logging.FromContext(ctx).Errorf("env.Close: %v", err)
		}
	}()
	if l := env.Logger(); l != nil {
		ctx = logging.WithLogger(ctx, l)
	}
	logger := logging.FromContext(ctx)

	reg, err := env.ProvideRegistry()()
	if err != nil {
		return fmt.Errorf("registry provider function error: %w", err)
	}
	if err := reg.Run(ctx); err != nil {
		return fmt.Errorf("registry.Run: %w", err)
	}
	defer reg.Stop()

	scoreHandler, err := score.NewHandler(&config.Score, reg)
	if err != nil {
		return fmt.Errorf("score.NewHandler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", scoreHandler)
	mux.Handle("GET /health", server.HandleHealth(ctx))
	if h := env.MetricsHandler(); h != nil {
		mux.Handle("GET /metrics", h)
	}

	srv, err := server.New(config.SrvAddr, server.WithMaxConns(config.MaxConns))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	grpcSrv, err := server.New(config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	health, hs := server.NewHealthGRPC(buildinfo.Info.Name())

	logger.Infof("serving http on %s, grpc health on %s", srv.Addr(), grpcSrv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ServeHTTPHandler(gctx, mux)
	})
	g.Go(func() error {
		return grpcSrv.ServeGRPC(gctx, health, hs)
	})
	return g.Wait()
}
