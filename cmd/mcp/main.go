package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenthands/lexgraph/internal/bootstrap"
	"github.com/agenthands/lexgraph/internal/config"
	"github.com/agenthands/lexgraph/internal/logger"
	"github.com/agenthands/lexgraph/internal/tools"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	// stdout carries the MCP protocol
	log := logger.New(logger.Config{Level: cfg.Log.Level, Output: os.Stderr})
	if err != nil {
		log.Warn().Err(err).Str("path", cfgPath).Msg("using default configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pipeline")
	}
	defer app.Close(ctx)

	if err := server.ServeStdio(tools.NewServer(app.LexGraph, app.Graph)); err != nil {
		log.Error().Err(err).Msg("mcp server stopped")
	}
}
