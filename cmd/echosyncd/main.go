package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"echosync/internal/config"
	"echosync/internal/daemon"
	"echosync/internal/logging"
	"echosync/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open case store", logging.Args(logging.Error(err))...)
		return
	}

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		logger.Error("create daemon", logging.Args(logging.Error(err))...)
		_ = st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Args(logging.Error(err))...)
		return
	}

	<-ctx.Done()
	logger.Info("echosyncd shutting down")
}
