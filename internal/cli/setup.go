package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	opensearch "github.com/opensearch-project/opensearch-go/v2"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/ai/providers/bedrock"
	"github.com/Sakthi-S29/trackwise/internal/ai/providers/ollama"
	"github.com/Sakthi-S29/trackwise/internal/blobstore"
	"github.com/Sakthi-S29/trackwise/internal/config"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/pipeline"
	"github.com/Sakthi-S29/trackwise/internal/record"
	"github.com/Sakthi-S29/trackwise/internal/textcache"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// components holds the wired pipeline dependencies for one variant
type components struct {
	cfg       *config.Config
	log       *logger.Logger
	embedder  ai.Embedder
	generator ai.Generator
	index     vectorindex.Store
	blobs     blobstore.Store
	cache     *textcache.Cache
	records   record.Store

	// Local-variant extras: the in-process index, its backing store
	// for publish/reload, and the optional blob watcher.
	flat       *vectorindex.FlatIndex
	localBlobs *blobstore.LocalStore
	reloader   *vectorindex.Reloader
}

// buildComponents constructs the variant's providers and stores
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{
		cfg: cfg,
		log: logger.New("trackwise", isVerbose),
	}

	var err error
	switch cfg.Variant {
	case config.VariantManaged:
		err = c.buildManaged(ctx)
	case config.VariantLocal:
		err = c.buildLocal(ctx)
	default:
		err = fmt.Errorf("unknown variant %q", cfg.Variant)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AWS.DynamoTable != "" {
		if err := c.buildRecordStore(ctx); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// buildManaged wires Bedrock, OpenSearch, and S3
func (c *components) buildManaged(ctx context.Context) error {
	cfg := c.cfg

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	provider, err := bedrock.New(bedrockruntime.NewFromConfig(awsCfg), &bedrock.Config{
		Region:             cfg.AWS.Region,
		EmbedModelID:       cfg.Embedding.Model,
		GenerateModelID:    cfg.Generation.Model,
		Timeout:            cfg.Embedding.Timeout,
		MaxTokens:          cfg.Generation.MaxTokens,
		DefaultTemperature: cfg.Generation.Temperature,
		RequestsPerMinute:  cfg.Embedding.RequestsPerMinute,
	})
	if err != nil {
		return fmt.Errorf("creating bedrock provider: %w", err)
	}
	c.embedder = provider
	c.generator = provider

	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.AWS.OpenSearchEndpoint},
	})
	if err != nil {
		return fmt.Errorf("creating opensearch client: %w", err)
	}
	c.index, err = vectorindex.NewOpenSearchStore(osClient, vectorindex.OpenSearchOptions{
		Index:   cfg.AWS.OpenSearchIndex,
		Replace: cfg.Retrieval.Replace,
	}, c.log.WithComponent("opensearch"))
	if err != nil {
		return fmt.Errorf("creating opensearch store: %w", err)
	}

	c.blobs = blobstore.NewS3Store(s3.NewFromConfig(awsCfg), cfg.AWS.S3Bucket, cfg.AWS.S3Prefix)
	c.cache = textcache.New(c.blobs, cfg.Storage.CacheKey, c.log.WithComponent("textcache"))
	return nil
}

// buildLocal wires Ollama and the on-disk flat index
func (c *components) buildLocal(ctx context.Context) error {
	cfg := c.cfg

	provider, err := ollama.New(&ollama.Config{
		BaseURL:            cfg.Embedding.Endpoint,
		EmbedModel:         cfg.Embedding.Model,
		GenerateModel:      cfg.Generation.Model,
		Timeout:            cfg.Generation.Timeout,
		MaxTokens:          cfg.Generation.MaxTokens,
		DefaultTemperature: cfg.Generation.Temperature,
	})
	if err != nil {
		return fmt.Errorf("creating ollama provider: %w", err)
	}
	c.embedder = provider
	c.generator = provider

	localBlobs, err := blobstore.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("opening storage directory %s: %w", cfg.Storage.Dir, err)
	}
	c.localBlobs = localBlobs
	c.blobs = localBlobs

	// No separate text cache here: the texts blob is the flat index's
	// positional pair partner, written only by publish so it always
	// matches the vector blob entry for entry.
	flat := vectorindex.NewFlatIndex(vectorindex.FlatOptions{Replace: cfg.Retrieval.Replace})
	if err := flat.LoadFrom(ctx, localBlobs, cfg.Storage.IndexKey, cfg.Storage.CacheKey); err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("loading published index: %w", err)
		}
		c.log.Info("no published index found, starting empty")
	} else {
		count, _ := flat.Count(ctx)
		c.log.Info("loaded %d entries from published index", count)
	}
	c.flat = flat
	c.index = flat

	if cfg.Storage.WatchReload {
		reloader, err := vectorindex.NewReloader(localBlobs, flat, cfg.Storage.IndexKey, cfg.Storage.CacheKey, c.log.WithComponent("reload"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: index reload watcher unavailable: %v\n", err)
		} else {
			c.reloader = reloader
		}
	}
	return nil
}

// buildRecordStore wires the DynamoDB record store used by batch
// reindexing. Both variants read records from the same table.
func (c *components) buildRecordStore(ctx context.Context) error {
	cfg := c.cfg

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	store, err := record.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.AWS.DynamoTable)
	if err != nil {
		return fmt.Errorf("creating record store: %w", err)
	}
	c.records = store
	return nil
}

func newIngestor(c *components) (*pipeline.Ingestor, error) {
	ingestor, err := pipeline.NewIngestor(c.embedder, c.index, c.cache, c.log.WithComponent("ingest"))
	if err != nil {
		return nil, err
	}
	if c.flat != nil {
		ingestor = ingestor.WithPublisher(c.publish)
	}
	return ingestor, nil
}

func newQueryService(c *components) (*pipeline.QueryService, error) {
	retriever, err := pipeline.NewRetriever(c.embedder, c.index, c.cfg.Retrieval.TopK, c.log.WithComponent("retrieve"))
	if err != nil {
		return nil, err
	}
	return pipeline.NewQueryService(retriever, c.generator, pipeline.QueryOptions{
		Local:       c.cfg.Variant == config.VariantLocal,
		MaxTokens:   c.cfg.Generation.MaxTokens,
		Temperature: c.cfg.Generation.Temperature,
	}, c.log.WithComponent("query"))
}

func newBatchIndexer(c *components) (*pipeline.BatchIndexer, error) {
	return pipeline.NewBatchIndexer(c.records, c.embedder, c.index, c.cache, c.log.WithComponent("reindex"))
}

// publish writes the local index blobs so other processes can load
// them. No-op for the managed variant.
func (c *components) publish(ctx context.Context) error {
	if c.flat == nil || c.localBlobs == nil {
		return nil
	}
	return c.flat.SaveTo(ctx, c.localBlobs, c.cfg.Storage.IndexKey, c.cfg.Storage.CacheKey)
}

// Close releases providers and watchers
func (c *components) Close() {
	if c.reloader != nil {
		_ = c.reloader.Close()
	}
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
	if c.generator != nil && any(c.generator) != any(c.embedder) {
		_ = c.generator.Close()
	}
}
