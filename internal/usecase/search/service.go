package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
)

// Defaults for Config.
const (
	DefaultTopK       = 10
	DefaultMaxTopK    = 100
	DefaultTargetLang = "en"
)

// Config tunes Find.
type Config struct {
	DefaultTopK int
	MaxTopK     int
	TargetLang  string
	// ExtendedFusion also queries title and ocr_text with the text vector,
	// and image with the multimodal vector of the query text.
	ExtendedFusion bool
}

// Collaborators are the external services Find depends on.
type Collaborators struct {
	Text       domain.Embedder
	Multimodal domain.MultimodalEmbedder
	Translator domain.Translator
}

// Service answers composite queries with a ranked list of ticket ids.
type Service struct {
	buckets BucketChecker
	points  PointSearcher
	collab  Collaborators
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service.
func New(buckets BucketChecker, points PointSearcher, collab Collaborators, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = DefaultTargetLang
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{buckets: buckets, points: points, collab: collab, cfg: cfg, logger: logger}
}

// knn is one nearest-neighbor lookup of a Find call.
type knn struct {
	slot   dombucket.Slot
	vector []float32
}

// Find ranks the tickets of a bucket against a query text and query images.
// topK <= 0 selects the configured default.
func (s *Service) Find(
	ctx context.Context, bucketID, queryText string, queryImages []ticket.Image, topK int,
) ([]string, error) {
	topK, err := s.validate(bucketID, queryText, queryImages, topK)
	if err != nil {
		return nil, err
	}

	ok, err := s.buckets.Exists(ctx, bucketID)
	if err != nil {
		return nil, s.fail(bucketID, fmt.Errorf("bucket exists: %w",
			domain.NewCollaboratorError(domain.CollaboratorVectorStore, err)))
	}
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", bucketID, domain.ErrNotFound)
	}

	queries, err := s.vectorize(ctx, strings.TrimSpace(queryText), queryImages)
	if err != nil {
		return nil, s.fail(bucketID, err)
	}

	lists, err := s.searchAll(ctx, bucketID, queries, topK)
	if err != nil {
		return nil, s.fail(bucketID, err)
	}

	ranked := fuse(lists)
	metrics.SearchCandidates.Observe(float64(len(ranked)))
	return topIDs(ranked, topK), nil
}

func (s *Service) validate(bucketID, queryText string, queryImages []ticket.Image, topK int) (int, error) {
	if err := dombucket.ValidateID(bucketID); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	for i, img := range queryImages {
		if err := img.Validate(); err != nil {
			return 0, fmt.Errorf("%w: query image %d: %w", domain.ErrInvalidArgument, i, err)
		}
	}
	if strings.TrimSpace(queryText) == "" && len(queryImages) == 0 {
		return 0, fmt.Errorf("%w: query text or at least one query image is required", domain.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return 0, fmt.Errorf("%w: top_k %d exceeds %d", domain.ErrInvalidArgument, topK, s.cfg.MaxTopK)
	}
	return topK, nil
}

// vectorize computes every query vector in parallel and returns the lookups in query order:
// text lookups first, then one per image in request order.
func (s *Service) vectorize(ctx context.Context, text string, images []ticket.Image) ([]knn, error) {
	var textVec, mmTextVec []float32
	imageVecs := make([][]float32, len(images))

	g, gctx := errgroup.WithContext(ctx)

	if text != "" {
		g.Go(func() error {
			translated, err := s.collab.Translator.Translate(gctx, text, domain.AutoDetect, s.cfg.TargetLang)
			if err != nil {
				return fmt.Errorf("translate query: %w",
					domain.NewCollaboratorError(domain.CollaboratorTranslator, err))
			}
			if strings.TrimSpace(translated) == "" {
				translated = text
			}

			eg, ectx := errgroup.WithContext(gctx)
			eg.Go(func() error {
				res, err := s.collab.Text.Embed(ectx, translated)
				if err != nil {
					return fmt.Errorf("embed query text: %w",
						domain.NewCollaboratorError(domain.CollaboratorTextEmbedder, err))
				}
				textVec = res.Embedding
				return nil
			})
			if s.cfg.ExtendedFusion {
				eg.Go(func() error {
					vec, err := s.collab.Multimodal.EmbedText(ectx, translated)
					if err != nil {
						return fmt.Errorf("embed query text (multimodal): %w",
							domain.NewCollaboratorError(domain.CollaboratorMultimodalEmbedder, err))
					}
					mmTextVec = vec
					return nil
				})
			}
			return eg.Wait()
		})
	}

	for i, img := range images {
		g.Go(func() error {
			vec, err := s.collab.Multimodal.EmbedImage(gctx, img)
			if err != nil {
				return fmt.Errorf("embed query image %d: %w", i,
					domain.NewCollaboratorError(domain.CollaboratorMultimodalEmbedder, err))
			}
			imageVecs[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	queries := make([]knn, 0, 4+len(images))
	if text != "" {
		queries = append(queries, knn{slot: dombucket.SlotDescription, vector: textVec})
		if s.cfg.ExtendedFusion {
			queries = append(queries,
				knn{slot: dombucket.SlotTitle, vector: textVec},
				knn{slot: dombucket.SlotOCRText, vector: textVec},
			)
		}
	}
	for _, vec := range imageVecs {
		queries = append(queries, knn{slot: dombucket.SlotImage, vector: vec})
	}
	if text != "" && s.cfg.ExtendedFusion {
		queries = append(queries, knn{slot: dombucket.SlotImage, vector: mmTextVec})
	}
	return queries, nil
}

// searchAll runs the lookups in parallel. Result lists keep query order whatever the completion order.
func (s *Service) searchAll(ctx context.Context, bucketID string, queries []knn, limit int) ([][]point.Hit, error) {
	lists := make([][]point.Hit, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			metrics.SearchQueriesTotal.WithLabelValues(string(q.slot)).Inc()
			hits, err := s.points.Search(gctx, bucketID, q.slot, q.vector, limit)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// dropped between the existence check and the lookup
					return fmt.Errorf("bucket %s: %w", bucketID, err)
				}
				return fmt.Errorf("search %s: %w", q.slot,
					domain.NewCollaboratorError(domain.CollaboratorVectorStore, err))
			}
			lists[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Service) fail(bucketID string, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("Find failed",
			zap.String("bucket", bucketID),
			zap.String("collaborator", domain.CollaboratorOf(err)),
			zap.Error(err),
		)
	}
	return err
}
