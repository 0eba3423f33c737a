package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/bridge"
	"contracting-bridge/internal/config"
)

// synctender runs one full sync pass for a single tender id and exits. Useful
// to backfill a tender the continuous bridge missed or to verify credentials
// and connectivity against both APIs.
func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	tenderID := flag.String("tender", "", "Tender id to synchronize")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *tenderID == "" {
		log.Fatal("-tender is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	b, err := bridge.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise bridge: %v", err)
	}

	if err := b.SyncSingleTender(ctx, *tenderID); err != nil {
		log.Fatalf("sync of tender %s failed: %v", *tenderID, err)
	}
}
