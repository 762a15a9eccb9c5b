package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/lexgraph/internal/config"
	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/driver"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/logger"
	"github.com/agenthands/lexgraph/internal/seed"
	"github.com/agenthands/lexgraph/internal/storage"
)

func main() {
	fixture := flag.String("fixture", "fixtures/regulations.json", "JSON fixture to load")
	cfgPath := flag.String("config", "config/config.toml", "configuration file")
	memgraph := flag.Bool("memgraph", false, "also write the graph to Memgraph")
	embed := flag.Bool("embed", true, "embed documents with the configured provider")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true})

	ctx := context.Background()
	fx, err := seed.LoadFile(*fixture)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fixture")
	}

	store, err := storage.Open(cfg.SQLite.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open sqlite store")
	}
	defer store.Close()

	loader := &seed.Loader{
		Documents: store,
		Graphs:    []seed.GraphWriter{seed.SQLiteGraph{Store: store}},
		Log:       log,
	}
	if *embed {
		_, embedder, err := llm.NewClient(ctx, cfg.LLM, logger.Component(log, "llm"))
		if err != nil {
			log.Warn().Err(err).Msg("embedder unavailable, documents are stored for keyword search only")
		}
		loader.Embedder = embedder
	}
	if *memgraph {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger.Component(log, "memgraph"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to memgraph")
		}
		defer d.Close(ctx)
		if err := d.BuildIndices(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to build indices")
		}
		loader.Graphs = append(loader.Graphs, seed.CypherGraph{Store: graph.NewCypherStore(d)})
	}

	if _, err := loader.Load(ctx, fx); err != nil {
		log.Error().Err(err).Msg("seeding failed")
		os.Exit(1)
	}
}
