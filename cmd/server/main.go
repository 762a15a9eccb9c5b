package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/agenthands/lexgraph/internal/bootstrap"
	"github.com/agenthands/lexgraph/internal/config"
	"github.com/agenthands/lexgraph/internal/logger"
	"github.com/agenthands/lexgraph/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if envErr != nil {
		log.Debug().Msg("no .env file found")
	}
	if err != nil {
		log.Warn().Err(err).Str("path", cfgPath).Msg("using default configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pipeline")
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	srv := server.NewServer(app.LexGraph, app.Registry, logger.Component(log, "http"))
	if err := srv.Run(ctx, ":"+cfg.Server.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
