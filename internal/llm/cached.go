package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/cache"
	"github.com/agenthands/lexgraph/internal/core/common"
	"github.com/agenthands/lexgraph/internal/metrics"
)

// CachedEmbedder memoises query embeddings. Cache failures fall through to
// the wrapped embedder.
type CachedEmbedder struct {
	Inner   EmbedderClient
	Cache   cache.Cache
	TTL     time.Duration
	Model   string
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if b, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.Log.Warn().Err(err).Msg("embedding cache read failed")
	} else if ok {
		if vec, err := common.DecodeVector(b); err == nil {
			c.record("hit")
			return vec, nil
		}
	}
	c.record("miss")

	vec, err := c.Inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, common.EncodeVector(vec), c.TTL); err != nil {
		c.Log.Warn().Err(err).Msg("embedding cache write failed")
	}
	return vec, nil
}

func (c *CachedEmbedder) record(result string) {
	if c.Metrics != nil {
		c.Metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.Model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
