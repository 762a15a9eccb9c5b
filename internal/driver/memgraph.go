package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/rs/zerolog"
)

const queryTimeout = 10 * time.Second

// MemgraphDriver speaks Bolt to Memgraph through the Neo4j driver.
type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
	log    zerolog.Logger
}

func NewMemgraphDriver(ctx context.Context, uri, username, password string, log zerolog.Logger) (*MemgraphDriver, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}
	drv, err := neo4j.NewDriverWithContext(uri, auth, func(c *config.Config) {
		c.MaxConnectionPoolSize = 20
		c.ConnectionAcquisitionTimeout = queryTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("memgraph driver for %s: %w", uri, err)
	}

	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		return nil, fmt.Errorf("memgraph at %s unreachable: %w", uri, err)
	}

	log.Info().Str("uri", uri).Msg("connected to Memgraph")
	return &MemgraphDriver{Driver: drv, log: log}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (d *MemgraphDriver) ExecuteRead(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

func (d *MemgraphDriver) execute(ctx context.Context, query string, params map[string]any, routing neo4j.ExecuteQueryConfigurationOption) (neo4j.EagerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, routing)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	d.log.Debug().
		Dur("duration", time.Since(start)).
		Int("records", len(result.Records)).
		Msg("cypher")
	return *result, nil
}

// BuildIndices creates the label-property indices. Indices that already
// exist are not an error.
func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	var errs []error
	for _, q := range IndexQueries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "already exists") {
				continue
			}
			d.log.Warn().Err(err).Str("query", q).Msg("failed to create index")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
