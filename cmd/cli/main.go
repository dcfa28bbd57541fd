package main

import (
	"context"
	"log"
	"os"

	"github.com/azfinis/promoconsig/internal/client/cli"
	"github.com/azfinis/promoconsig/internal/client/config"
	"github.com/azfinis/promoconsig/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
