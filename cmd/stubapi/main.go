package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/azfinis/promoconsig/internal/logging"
	"github.com/azfinis/promoconsig/internal/stubapi"
)

func main() {

	cfg := stubapi.LoadConfig()
	logger := logging.New(cfg.LogLevel, "json", os.Stdout)

	fixtures := stubapi.DefaultFixtures()
	if cfg.FixturesFile != "" {
		f, err := stubapi.LoadFixtures(cfg.FixturesFile)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fixtures = f
	}

	srv, err := stubapi.NewServer(cfg, fixtures, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}

}
