package main

import (
	"context"
	"log"
	"os"

	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server"
	"github.com/PromptVision-AI/promptvision-app/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
