package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/api"
	"contracting-bridge/internal/bridge"
	"contracting-bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Configure global logger (timestamped, info level by default).
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration file.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Prepare cancellable context that listens to OS signals (Ctrl+C).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("interrupt received, shutting down gracefully…")
		cancel()
	}()

	b, err := bridge.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise bridge: %v", err)
	}

	if cfg.StatusAPI.Enabled {
		srv := api.NewServer(b)
		go func() {
			if err := srv.Run(cfg.StatusAPI.Port); err != nil {
				logrus.Errorf("status server stopped: %v", err)
			}
		}()
	}

	if err := b.Run(ctx); err != nil {
		log.Fatalf("bridge terminated with error: %v", err)
	}
}
