package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/app"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/config"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gin.SetMode(cfg.GinMode)

	if err := app.Run(cfg, log); err != nil {
		log.Fatal("app", zap.Error(err))
	}
}
