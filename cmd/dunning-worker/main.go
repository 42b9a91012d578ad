package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ju-nu/ShopwareDunning/config"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "single pass without sending mail or writing stage markers")
	flag.Parse()

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", "path", cfgPath, "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunDunningWorker(ctx, cfg, *dryRun, defaultWorkerFactories()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker failed", "error", err.Error())
		os.Exit(1)
	}
}
