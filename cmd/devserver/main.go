// devserver runs the local reference backend on the configured address.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver"
	"github.com/d60-Lab/reveal-client/pkg/logger"
	"github.com/d60-Lab/reveal-client/pkg/tracing"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.SentryDSN); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	srv, err := devserver.New(cfg.DevServer)
	if err != nil {
		logger.Error("devserver init failed", zap.Error(err))
		os.Exit(1)
	}
	defer srv.Shutdown(context.Background())

	if err := srv.Run(ctx, cfg.DevServer.Addr); err != nil {
		logger.Error("devserver exited", zap.Error(err))
		os.Exit(1)
	}
}
