package main

import (
	"context"
	"log"

	"github.com/burakmert236/goodswipe-rewards/common/config"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/utils"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/app"
)

func main() {
	env := config.NewEnvLoader(config.EnvPrefix)

	cfg, err := config.Load(env.ConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, appErr := app.New(ctx, cfg)
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if appErr := application.Start(ctx); appErr != nil {
		log.Fatalf("Failed to start application: %v", appErr)
	}

	utils.WaitForGracefulShutdown(ctx, logger.Default("rewards-service"))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.ShutdownTimeout())
	defer shutdownCancel()

	if appErr := application.Stop(shutdownCtx); appErr != nil {
		log.Printf("Error during shutdown: %v", appErr)
	}
}
