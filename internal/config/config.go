package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type ElasticsearchConfig struct {
	URL      string `toml:"url"`
	Index    string `toml:"index"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	// VectorField enables kNN queries when set.
	VectorField string `toml:"vector_field"`
}

type MilvusConfig struct {
	Address     string `toml:"address"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Database    string `toml:"database"`
	Collection  string `toml:"collection"`
	VectorField string `toml:"vector_field"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type CacheConfig struct {
	// Backend is "none", "lru" or "redis".
	Backend  string `toml:"backend"`
	Capacity int    `toml:"capacity"`
	TTL      string `toml:"ttl"`
}

type SearchConfig struct {
	KeywordBackend string  `toml:"keyword_backend"`
	VectorBackend  string  `toml:"vector_backend"`
	Fusion         string  `toml:"fusion"`
	KeywordWeight  float64 `toml:"keyword_weight"`
	VectorWeight   float64 `toml:"vector_weight"`
	RRFK           int     `toml:"rrf_k"`
	Oversample     int     `toml:"oversample"`
	DefaultSize    int     `toml:"default_size"`
	MaxSize        int     `toml:"max_size"`
}

type GraphConfig struct {
	Backend      string `toml:"backend"`
	MaxHops      int    `toml:"max_hops"`
	WarmOnStart  bool   `toml:"warm_on_start"`
	BuildIndices bool   `toml:"build_indices"`
}

type AnswerConfig struct {
	ContextHits       int    `toml:"context_hits"`
	ContextTokens     int    `toml:"context_tokens"`
	Encoding          string `toml:"encoding"`
	GenerationTimeout string `toml:"generation_timeout"`
	Rerank            bool   `toml:"rerank"`
	MaxQuestionLength int    `toml:"max_question_length"`
	LLMClassifier     bool   `toml:"llm_classifier"`
}

type Prompts struct {
	Factual    string `toml:"factual"`
	Definition string `toml:"definition"`
	Comparison string `toml:"comparison"`
	Procedural string `toml:"procedural"`
	Amendment  string `toml:"amendment"`
	Classify   string `toml:"classify"`
}

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Log           LogConfig           `toml:"log"`
	LLM           LLMConfig           `toml:"llm"`
	Memgraph      MemgraphConfig      `toml:"memgraph"`
	SQLite        SQLiteConfig        `toml:"sqlite"`
	Elasticsearch ElasticsearchConfig `toml:"elasticsearch"`
	Milvus        MilvusConfig        `toml:"milvus"`
	Redis         RedisConfig         `toml:"redis"`
	Cache         CacheConfig         `toml:"cache"`
	Search        SearchConfig        `toml:"search"`
	Graph         GraphConfig         `toml:"graph"`
	Answer        AnswerConfig        `toml:"answer"`
	Prompts       Prompts             `toml:"prompts"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "release"},
		Log:    LogConfig{Level: "info"},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "gpt-oss:latest",
			BaseURL:  "http://localhost:11434",
		},
		Memgraph:      MemgraphConfig{URI: "bolt://localhost:7687"},
		SQLite:        SQLiteConfig{Path: "data/lexgraph.db"},
		Elasticsearch: ElasticsearchConfig{Index: "regulations"},
		Milvus:        MilvusConfig{Collection: "regulations", VectorField: "embedding"},
		Cache:         CacheConfig{Backend: "lru", Capacity: 1024, TTL: "1h"},
		Search: SearchConfig{
			KeywordBackend: "sqlite",
			VectorBackend:  "sqlite",
			Fusion:         "weighted",
			KeywordWeight:  0.5,
			VectorWeight:   0.5,
			RRFK:           60,
			Oversample:     3,
			DefaultSize:    10,
			MaxSize:        100,
		},
		Graph: GraphConfig{Backend: "sqlite", MaxHops: 3},
		Answer: AnswerConfig{
			ContextHits:       5,
			ContextTokens:     3000,
			Encoding:          "cl100k_base",
			GenerationTimeout: "20s",
			MaxQuestionLength: 2000,
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.SQLite.Path, "SQLITE_PATH")
	setString(&c.Elasticsearch.URL, "ELASTICSEARCH_URL")
	setString(&c.Milvus.Address, "MILVUS_ADDRESS")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Search.KeywordBackend, "SEARCH_KEYWORD_BACKEND")
	setString(&c.Search.VectorBackend, "SEARCH_VECTOR_BACKEND")
	setString(&c.Graph.Backend, "GRAPH_BACKEND")
	if v := os.Getenv("GRAPH_MAX_HOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Graph.MaxHops = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if !oneOf(c.Search.KeywordBackend, "sqlite", "elasticsearch") {
		return fmt.Errorf("search.keyword_backend: unsupported backend %q", c.Search.KeywordBackend)
	}
	if !oneOf(c.Search.VectorBackend, "sqlite", "elasticsearch", "milvus", "none") {
		return fmt.Errorf("search.vector_backend: unsupported backend %q", c.Search.VectorBackend)
	}
	if !oneOf(c.Search.Fusion, "weighted", "rrf") {
		return fmt.Errorf("search.fusion: unsupported strategy %q", c.Search.Fusion)
	}
	if c.Search.KeywordWeight < 0 || c.Search.VectorWeight < 0 || c.Search.KeywordWeight+c.Search.VectorWeight == 0 {
		return fmt.Errorf("search weights must be non-negative and not both zero")
	}
	if !oneOf(c.Graph.Backend, "sqlite", "memgraph") {
		return fmt.Errorf("graph.backend: unsupported backend %q", c.Graph.Backend)
	}
	if c.Graph.MaxHops < 1 {
		return fmt.Errorf("graph.max_hops must be at least 1")
	}
	if !oneOf(c.Cache.Backend, "none", "lru", "redis", "") {
		return fmt.Errorf("cache.backend: unsupported backend %q", c.Cache.Backend)
	}
	if c.Search.KeywordBackend == "elasticsearch" && c.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch.url is required for the elasticsearch backend")
	}
	if c.Search.VectorBackend == "milvus" && c.Milvus.Address == "" {
		return fmt.Errorf("milvus.address is required for the milvus backend")
	}
	if _, err := c.Answer.Timeout(); err != nil {
		return err
	}
	if _, err := c.Cache.Expiry(); err != nil {
		return err
	}
	return nil
}

func (a AnswerConfig) Timeout() (time.Duration, error) {
	if a.GenerationTimeout == "" {
		return 20 * time.Second, nil
	}
	d, err := time.ParseDuration(a.GenerationTimeout)
	if err != nil {
		return 0, fmt.Errorf("answer.generation_timeout: %w", err)
	}
	return d, nil
}

func (c CacheConfig) Expiry() (time.Duration, error) {
	if c.TTL == "" {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache.ttl: %w", err)
	}
	return d, nil
}

func oneOf(v string, options ...string) bool {
	v = strings.ToLower(v)
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
