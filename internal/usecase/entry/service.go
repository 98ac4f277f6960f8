package entry

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

// DefaultEmbedParallelism bounds concurrent collaborator calls of one Put.
const DefaultEmbedParallelism = 4

// Config tunes ingestion.
type Config struct {
	EmbedParallelism   int
	PruneStaleImages   bool
	MaxAttachments     int // 0 = unlimited
	MaxAttachmentBytes int // 0 = unlimited
}

// Collaborators are the external services Put depends on.
type Collaborators struct {
	Text       domain.Embedder
	Multimodal domain.MultimodalEmbedder
	OCR        domain.TextExtractor
}

// Service ingests and removes tickets.
type Service struct {
	buckets BucketRepository
	points  PointRepository
	collab  Collaborators
	cfg     Config
	logger  *zap.Logger
}

// New creates an entry service.
func New(buckets BucketRepository, points PointRepository, collab Collaborators, cfg Config, logger *zap.Logger) *Service {
	if cfg.EmbedParallelism <= 0 {
		cfg.EmbedParallelism = DefaultEmbedParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{buckets: buckets, points: points, collab: collab, cfg: cfg, logger: logger}
}

// Put indexes a ticket: a title point, a description point and one point per attachment.
// Every vector is computed before the single batch write; any collaborator failure leaves the store untouched.
// Returns the number of points written.
func (s *Service) Put(ctx context.Context, bucketID string, t ticket.Ticket) (int, error) {
	if err := s.validate(bucketID, t); err != nil {
		return 0, err
	}

	schema, err := s.buckets.Schema(ctx, bucketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("bucket %s: %w", bucketID, err)
		}
		return 0, s.storeError("Bucket lookup failed", bucketID, t.ID, err)
	}

	points, err := s.decompose(ctx, t)
	if err != nil {
		s.logger.Error("Ticket embedding failed",
			zap.String("bucket", bucketID),
			zap.String("ticket", t.ID),
			zap.String("collaborator", domain.CollaboratorOf(err)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("put ticket: %w", err)
	}

	for _, p := range points {
		if err := p.Validate(schema); err != nil {
			// embedder answered with the wrong dimensionality for this bucket
			return 0, fmt.Errorf("put ticket: %w: %w", domain.ErrInternal, err)
		}
	}

	if err := s.points.Upsert(ctx, bucketID, t.ID, points); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("bucket %s: %w", bucketID, err)
		}
		return 0, s.storeError("Point upsert failed", bucketID, t.ID, err)
	}
	for _, p := range points {
		metrics.IngestPointsTotal.WithLabelValues(string(p.Kind)).Inc()
	}

	if s.cfg.PruneStaleImages {
		s.prune(ctx, bucketID, t.ID, points)
	}

	s.logger.Debug("Ticket indexed",
		zap.String("bucket", bucketID),
		zap.String("ticket", t.ID),
		zap.Int("points", len(points)),
	)
	return len(points), nil
}

func (s *Service) validate(bucketID string, t ticket.Ticket) error {
	if err := dombucket.ValidateID(bucketID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if s.cfg.MaxAttachments > 0 && len(t.Attachments) > s.cfg.MaxAttachments {
		return fmt.Errorf("%w: %d attachments, max %d", domain.ErrInvalidArgument, len(t.Attachments), s.cfg.MaxAttachments)
	}
	if s.cfg.MaxAttachmentBytes > 0 {
		for i, a := range t.Attachments {
			if len(a.Content) > s.cfg.MaxAttachmentBytes {
				return fmt.Errorf("%w: attachment %d is %d bytes, max %d",
					domain.ErrInvalidArgument, i, len(a.Content), s.cfg.MaxAttachmentBytes)
			}
		}
	}
	return nil
}

// decompose computes every vector of the ticket in parallel and builds its points in canonical order.
func (s *Service) decompose(ctx context.Context, t ticket.Ticket) ([]point.Point, error) {
	n := len(t.Attachments)
	var titleVec, descVec []float32
	imageVecs := make([][]float32, n)
	ocrTexts := make([]string, n)
	ocrVecs := make([][]float32, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedParallelism)

	// blank text is not embedded: the point is still written, just without a vector
	if strings.TrimSpace(t.Title) != "" {
		g.Go(func() error {
			res, err := s.collab.Text.Embed(gctx, t.Title)
			if err != nil {
				return fmt.Errorf("embed title: %w", domain.NewCollaboratorError(domain.CollaboratorTextEmbedder, err))
			}
			titleVec = res.Embedding
			return nil
		})
	}
	if strings.TrimSpace(t.Description) != "" {
		g.Go(func() error {
			res, err := s.collab.Text.Embed(gctx, t.Description)
			if err != nil {
				return fmt.Errorf("embed description: %w", domain.NewCollaboratorError(domain.CollaboratorTextEmbedder, err))
			}
			descVec = res.Embedding
			return nil
		})
	}

	for i, img := range t.Attachments {
		g.Go(func() error {
			vec, err := s.collab.Multimodal.EmbedImage(gctx, img)
			if err != nil {
				return fmt.Errorf("embed image %d: %w", i, domain.NewCollaboratorError(domain.CollaboratorMultimodalEmbedder, err))
			}
			imageVecs[i] = vec
			return nil
		})
		g.Go(func() error {
			text, err := s.collab.OCR.ExtractText(gctx, img)
			if err != nil {
				return fmt.Errorf("ocr image %d: %w", i, domain.NewCollaboratorError(domain.CollaboratorOCR, err))
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return nil
			}
			res, err := s.collab.Text.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed ocr text %d: %w", i, domain.NewCollaboratorError(domain.CollaboratorTextEmbedder, err))
			}
			ocrTexts[i] = text
			ocrVecs[i] = res.Embedding
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]point.Point, 0, 2+n)
	points = append(points,
		point.NewTitle(t.ID, t.Title, t.Description, titleVec),
		point.NewDescription(t.ID, t.Title, t.Description, descVec),
	)
	for i := range t.Attachments {
		points = append(points, point.NewImage(t.ID, t.Title, t.Description, i, imageVecs[i], ocrTexts[i], ocrVecs[i]))
	}
	return points, nil
}

// prune drops image points left over from an earlier ingestion with more attachments.
// The new points are already written, so a failure here is logged and not returned.
func (s *Service) prune(ctx context.Context, bucketID, ticketID string, points []point.Point) {
	keep := make([]string, len(points))
	for i, p := range points {
		keep[i] = p.ID
	}
	n, err := s.points.Prune(ctx, bucketID, ticketID, keep)
	if err != nil {
		s.logger.Warn("Stale point pruning failed",
			zap.String("bucket", bucketID),
			zap.String("ticket", ticketID),
			zap.Error(err),
		)
		return
	}
	if n > 0 {
		metrics.PrunedPointsTotal.Add(float64(n))
		s.logger.Debug("Stale points pruned",
			zap.String("bucket", bucketID),
			zap.String("ticket", ticketID),
			zap.Int("count", n),
		)
	}
}

// Remove deletes every point of the ticket. An unknown ticket removes nothing and succeeds.
func (s *Service) Remove(ctx context.Context, bucketID, ticketID string) (int, error) {
	if err := dombucket.ValidateID(bucketID); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if err := ticket.ValidateID(ticketID); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	ok, err := s.buckets.Exists(ctx, bucketID)
	if err != nil {
		return 0, s.storeError("Bucket lookup failed", bucketID, ticketID, err)
	}
	if !ok {
		return 0, fmt.Errorf("bucket %s: %w", bucketID, domain.ErrNotFound)
	}

	n, err := s.points.RemoveTicket(ctx, bucketID, ticketID)
	if err != nil {
		return 0, s.storeError("Ticket removal failed", bucketID, ticketID, err)
	}
	return n, nil
}

func (s *Service) storeError(msg, bucketID, ticketID string, err error) error {
	s.logger.Error(msg,
		zap.String("bucket", bucketID),
		zap.String("ticket", ticketID),
		zap.String("collaborator", domain.CollaboratorVectorStore),
		zap.Error(err),
	)
	return domain.NewCollaboratorError(domain.CollaboratorVectorStore, err)
}
