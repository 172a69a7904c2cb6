package docstore

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/domain/schema"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	index                 string
	textField             string
	nameField             string
	externalSourceIDField string
	searchFields          []string
	tagFields             []string
	excludedMetaFields    []string
	embeddingField        string
	embeddingDim          int

	embedder        Embedder
	instruction     string
	cacheEmbeddings bool

	logger           *zap.Logger
	readinessTimeout time.Duration
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		index:            "document",
		logger:           zap.NewNop(),
		readinessTimeout: defaultReadinessTimeout,
	}
}

func (c *clientConfig) schema() (schema.IndexSchema, error) {
	var opts []schema.Option
	if c.textField != "" {
		opts = append(opts, schema.WithTextField(c.textField))
	}
	if c.nameField != "" {
		opts = append(opts, schema.WithNameField(c.nameField))
	}
	if c.externalSourceIDField != "" {
		opts = append(opts, schema.WithExternalSourceIDField(c.externalSourceIDField))
	}
	if len(c.searchFields) > 0 {
		opts = append(opts, schema.WithSearchFields(c.searchFields...))
	}
	if len(c.tagFields) > 0 {
		opts = append(opts, schema.WithTagFields(c.tagFields...))
	}
	if len(c.excludedMetaFields) > 0 {
		opts = append(opts, schema.WithExcludedMetaFields(c.excludedMetaFields...))
	}
	if c.embeddingField != "" {
		opts = append(opts, schema.WithEmbedding(c.embeddingField, c.embeddingDim))
	}
	s, err := schema.New(opts...)
	if err != nil {
		return schema.IndexSchema{}, fmt.Errorf("index schema: %w", err)
	}
	return s, nil
}

// WithRedis sets the Redis Stack addresses to connect to.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) { c.addrs = addrs }
}

// WithCredentials sets the database username and password.
func WithCredentials(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithDB selects the logical database number.
func WithDB(db int) Option {
	return func(c *clientConfig) { c.db = db }
}

// WithIndex sets the default index name. Defaults to "document".
func WithIndex(name string) Option {
	return func(c *clientConfig) { c.index = name }
}

// WithTextField renames the document body field. Defaults to "text".
func WithTextField(name string) Option {
	return func(c *clientConfig) { c.textField = name }
}

// WithNameField maps the given source meta field to the canonical "name" key.
func WithNameField(name string) Option {
	return func(c *clientConfig) { c.nameField = name }
}

// WithExternalSourceIDField renames the external source identifier field.
func WithExternalSourceIDField(name string) Option {
	return func(c *clientConfig) { c.externalSourceIDField = name }
}

// WithSearchFields adds meta fields to full-text search alongside the body.
func WithSearchFields(fields ...string) Option {
	return func(c *clientConfig) { c.searchFields = fields }
}

// WithTagFields declares meta fields usable in exact-match tag filters.
func WithTagFields(fields ...string) Option {
	return func(c *clientConfig) { c.tagFields = fields }
}

// WithExcludedMetaFields hides backend-internal fields from returned meta.
func WithExcludedMetaFields(fields ...string) Option {
	return func(c *clientConfig) { c.excludedMetaFields = fields }
}

// WithEmbeddingField enables vector storage and retrieval on the given field
// with the given dimensionality.
func WithEmbeddingField(field string, dim int) Option {
	return func(c *clientConfig) {
		c.embeddingField = field
		c.embeddingDim = dim
	}
}

// WithEmbedder plugs in an embedding provider, enabling Rerank.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithInstruction prepends an instruction or language hint to every text
// before it reaches the embedding provider.
func WithInstruction(instruction string) Option {
	return func(c *clientConfig) { c.instruction = instruction }
}

// WithEmbeddingCache caches embedding vectors in the database, keyed by a
// hash of the exact input text.
func WithEmbeddingCache() Option {
	return func(c *clientConfig) { c.cacheEmbeddings = true }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithReadinessTimeout bounds the startup wait for the database.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.readinessTimeout = d }
}
