//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexgraph/internal/bootstrap"
	"github.com/agenthands/lexgraph/internal/cache"
	"github.com/agenthands/lexgraph/internal/config"
	"github.com/agenthands/lexgraph/internal/core/answer"
	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/driver"
	"github.com/agenthands/lexgraph/internal/seed"
	"github.com/agenthands/lexgraph/internal/storage"
)

const fixturePath = "../../fixtures/regulations.json"

func TestMain(m *testing.M) {
	// Load environment if present
	_ = godotenv.Load("../../.env")
	os.Exit(m.Run())
}

func TestMemgraphGraph(t *testing.T) {
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()

	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), zerolog.Nop())
	require.NoError(t, err)
	defer d.Close(ctx)
	require.NoError(t, d.BuildIndices(ctx))

	store := graph.NewCypherStore(d)
	fx, err := seed.LoadFile(fixturePath)
	require.NoError(t, err)
	loader := &seed.Loader{Graphs: []seed.GraphWriter{seed.CypherGraph{Store: store}}, Log: zerolog.Nop()}
	_, err = loader.Load(ctx, fx)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, n := range fx.Nodes {
			_ = store.DeleteNode(ctx, n.ID)
		}
	})

	engine := graph.NewEngine(store)
	r := engine.FindReferences(ctx, "Employment Insurance Act", graph.Options{})
	require.NoError(t, r.Err)
	assert.Equal(t, model.ResolutionExact, r.Resolution)
	var ids []string
	for _, n := range r.MatchedNodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"clc", "eir"}, ids)

	chain := engine.ResolveChain(ctx, "Employment Insurance Act", model.EdgeAmends, model.EdgeImplements)
	require.NoError(t, chain.Err)
	require.Len(t, chain.MatchedNodes, 1)
	assert.Equal(t, "bir", chain.MatchedNodes[0].ID)

	require.NoError(t, engine.Warm(ctx))
	warm := engine.FindReferences(ctx, "Employment Insurance Act", graph.Options{})
	assert.Equal(t, r.MatchedEdges, warm.MatchedEdges)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping integration test: REDIS_ADDR not set")
	}
	ctx := context.Background()

	r, err := cache.DialRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer r.Close()

	key := "integration:" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, r.Set(ctx, key, []byte("vector"), time.Minute))
	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("vector"), got)
}

// TestFullFlow answers questions against a live model over the seeded
// SQLite stack.
func TestFullFlow(t *testing.T) {
	if os.Getenv("LLM_PROVIDER") == "" {
		t.Skip("Skipping integration test: LLM_PROVIDER not set")
	}
	ctx := context.Background()

	cfg := config.Default()
	cfg.ApplyEnv()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "lexgraph.db")
	cfg.Search.KeywordBackend, cfg.Search.VectorBackend, cfg.Graph.Backend = "sqlite", "sqlite", "sqlite"
	require.NoError(t, cfg.Validate())

	app, err := bootstrap.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close(ctx)

	store, err := storage.Open(cfg.SQLite.Path)
	require.NoError(t, err)
	defer store.Close()
	fx, err := seed.LoadFile(fixturePath)
	require.NoError(t, err)
	_, err = (&seed.Loader{Documents: store, Graphs: []seed.GraphWriter{seed.SQLiteGraph{Store: store}}, Log: zerolog.Nop()}).Load(ctx, fx)
	require.NoError(t, err)

	a, err := app.LexGraph.AnswerQuestion(ctx, "What regulations reference the Employment Insurance Act?")
	require.NoError(t, err)
	assert.Equal(t, answer.BandHigh, answer.BandOf(a.ConfidenceScore))
	assert.Contains(t, a.Answer, "reference")

	a, err = app.LexGraph.AnswerQuestion(ctx, "What is the maximum number of weeks of benefits?")
	require.NoError(t, err)
	t.Logf("factual answer (%.2f, degraded=%v): %s", a.ConfidenceScore, a.Degraded, a.Answer)
	assert.NotEmpty(t, a.Sources)
	assert.NotEmpty(t, a.Answer)
}
