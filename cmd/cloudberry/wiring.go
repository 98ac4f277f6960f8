package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/config"
	dbRedis "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db/redis"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
	bucketrepo "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/embcache"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
	milvusrepo "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/milvus"
	pointrepo "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/transport/onepeace"
	openaiTransport "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/transport/openai"
	bucketuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/collaborator"
	entryuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/entry"
	healthuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/health"
	searchuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/search"
)

// bucketStore is what the bucket, entry and search services need from bucket storage.
type bucketStore interface {
	bucketuc.Repository
	entryuc.BucketRepository
}

// pointStore is what the entry and search services need from point storage.
type pointStore interface {
	entryuc.PointRepository
	searchuc.PointSearcher
}

// kvStore backs the embedding cache.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type storage struct {
	buckets bucketStore
	points  pointStore
	pinger  healthuc.DBPinger
	kv      kvStore // nil when no key-value store is configured
	closers []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage connects the configured vector store.
// With driver milvus, database.addrs (if set) still provides the key-value store for the embedding cache.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	schema, err := dombucket.NewSchema(cfg.Embedding.Text.Dimensions, cfg.Embedding.Multimodal.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("bucket schema: %w", err)
	}
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	st := &storage{}

	var kv *dbRedis.Store
	if len(cfg.Database.Addrs) > 0 {
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		st.closers = append(st.closers, kv.Close)
		if err := kv.WaitForReady(ctx, readiness); err != nil {
			st.close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		st.kv = kv
	}

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		keys := layout.New(cfg.Database.KeyPrefix)
		st.buckets = bucketrepo.New(kv, keys, schema).WithHNSW(bucketrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		st.points = pointrepo.New(kv, keys, cfg.Index.HNSWEFRuntime)
		st.pinger = kv

	case config.DriverMilvus:
		dialCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		sdk, err := milvusrepo.Dial(dialCtx, milvusrepo.Config{
			Address:  cfg.Database.Milvus.Address,
			DBName:   cfg.Database.Milvus.DBName,
			Username: cfg.Database.Milvus.Username,
			Password: cfg.Database.Milvus.Password,
			TLS:      cfg.Database.Milvus.TLS,
		})
		if err != nil {
			st.close()
			return nil, fmt.Errorf("connect milvus: %w", err)
		}
		st.closers = append(st.closers, func() {
			if err := sdk.Close(); err != nil {
				logger.Warn("Failed to close milvus client", zap.Error(err))
			}
		})
		ms := milvusrepo.New(sdk, milvusPrefix(cfg.Database.KeyPrefix), schema, milvusrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
			EFSearch:    cfg.Index.HNSWEFRuntime,
		})
		st.buckets = ms
		st.points = ms
		st.pinger = sdk

	default:
		st.close()
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	// every vector store call gets its own deadline, independent of the request context
	storeGuard := newGuard(cfg, domain.CollaboratorVectorStore, 0, logger)
	st.buckets = collaborator.NewBuckets(st.buckets, storeGuard)
	st.points = collaborator.NewPoints(st.points, storeGuard)

	return st, nil
}

func newGuard(cfg *config.Config, name string, rps float64, logger *zap.Logger) *collaborator.Guard {
	return collaborator.NewGuard(collaborator.GuardConfig{
		Name:    name,
		Timeout: cfg.Limits.CallTimeout(),
		RPS:     rps,
		Burst:   int(rps) + 1,
		Breaker: collaborator.BreakerConfig{
			FailureRatio: cfg.Breaker.FailureRatio,
			MinRequests:  cfg.Breaker.MinRequests,
			OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		},
		Logger: logger,
	})
}

// milvusPrefix turns a key prefix like "cbs:" into a collection name prefix.
func milvusPrefix(keyPrefix string) string {
	out := make([]byte, 0, len(keyPrefix))
	for i := 0; i < len(keyPrefix); i++ {
		c := keyPrefix[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out = append(out, c)
		}
	}
	return string(out)
}

type collaborators struct {
	text       *collaborator.Embedder
	multimodal *collaborator.MultimodalEmbedder
	ocr        domain.TextExtractor
	translator domain.Translator
	closers    []func()
}

func (c *collaborators) close() {
	for _, fn := range c.closers {
		fn()
	}
}

// buildCollaborators assembles each client behind its guard.
// Text embedder chain: OpenAI -> Cached (optional) -> Guard.
func buildCollaborators(cfg *config.Config, kv kvStore, logger *zap.Logger) (*collaborators, error) {
	guard := func(name string, rps float64) *collaborator.Guard {
		return newGuard(cfg, name, rps, logger)
	}

	out := &collaborators{}

	tc := cfg.Embedding.Text
	var text domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     tc.APIKey,
		BaseURL:    tc.BaseURL,
		Model:      tc.Model,
		Dimensions: tc.Dimensions,
		Provider:   tc.Provider,
		Logger:     logger,
	})
	if tc.Cache.Enabled && kv != nil {
		text = embcache.New(text, kv, embcache.Config{
			Prefix: cfg.Database.KeyPrefix,
			Model:  tc.Model,
			TTL:    time.Duration(tc.Cache.TTLHrs) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	out.text = collaborator.NewEmbedder(text, guard(domain.CollaboratorTextEmbedder, 0))

	mc := cfg.Embedding.Multimodal
	mm, err := onepeace.New(onepeace.Config{
		Addr:       mc.Addr,
		Service:    mc.Service,
		Dimensions: mc.Dimensions,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("multimodal embedder: %w", err)
	}
	out.closers = append(out.closers, func() {
		if err := mm.Close(); err != nil {
			logger.Warn("Failed to close multimodal embedder", zap.Error(err))
		}
	})
	out.multimodal = collaborator.NewMultimodalEmbedder(mm, guard(domain.CollaboratorMultimodalEmbedder, 0))

	switch cfg.OCR.Provider {
	case config.OCRProviderOpenAI:
		ocr := openaiTransport.NewOCR(&openaiTransport.OCRConfig{
			APIKey:    cfg.OCR.APIKey,
			BaseURL:   cfg.OCR.BaseURL,
			Model:     cfg.OCR.Model,
			MaxTokens: cfg.OCR.MaxTokens,
		})
		out.ocr = collaborator.NewTextExtractor(ocr, guard(domain.CollaboratorOCR, cfg.OCR.RPS))
	default:
		out.ocr = collaborator.NoText{}
	}

	if cfg.Translator.Enabled {
		tr := openaiTransport.NewTranslator(&openaiTransport.TranslatorConfig{
			APIKey:  cfg.Translator.APIKey,
			BaseURL: cfg.Translator.BaseURL,
			Model:   cfg.Translator.Model,
			Logger:  logger,
		})
		out.translator = collaborator.NewTranslator(tr, guard(domain.CollaboratorTranslator, cfg.Translator.RPS))
	} else {
		out.translator = collaborator.PassthroughTranslator{}
	}

	logger.Info("Collaborators ready",
		zap.String("text_model", tc.Model),
		zap.Int("text_dimensions", tc.Dimensions),
		zap.Bool("embedding_cache", tc.Cache.Enabled && kv != nil),
		zap.String("multimodal_addr", mc.Addr),
		zap.String("ocr", cfg.OCR.Provider),
		zap.Bool("translator", cfg.Translator.Enabled),
	)

	return out, nil
}
