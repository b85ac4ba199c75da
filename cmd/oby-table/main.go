package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/josko3567/oby-server/internal/catalog"
	"github.com/josko3567/oby-server/internal/config"
	"github.com/josko3567/oby-server/internal/intake"
	"github.com/josko3567/oby-server/internal/logger"
	"github.com/josko3567/oby-server/internal/session"
)

func main() {
	config.LoadEnvFile()

	// The first argument, when given, overrides TABLE_URL.
	load := config.LoadClient
	if len(os.Args) > 1 {
		load = func() (*config.Client, error) { return config.LoadClientFor(os.Args[1]) }
	}
	cfg, err := load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewWithWriter(os.Stderr, "oby-table", cfg.LogLevel)

	sess := session.New(session.Options{
		Destination:    session.DestinationFromURL(cfg.TableURL),
		Catalog:        catalog.NewClient(cfg.ServiceURL, nil, log),
		Intake:         intake.NewClient(cfg.ServiceURL, nil),
		CatalogTimeout: cfg.CatalogTimeout,
		SubmitTimeout:  cfg.SubmitTimeout,
		Logger:         log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newREPL(sess, os.Stdin, os.Stdout).run(ctx); err != nil {
		log.Error("input error", "error", err)
		stop()
		os.Exit(1)
	}
}
