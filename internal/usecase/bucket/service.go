package bucket

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
)

// Service creates and destroys buckets.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a bucket service.
func New(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Init creates a bucket with the four-slot schema.
func (s *Service) Init(ctx context.Context, id string) error {
	if err := dombucket.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	if err := s.repo.Create(ctx, id); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("bucket %s: %w", id, err)
		}
		s.logger.Error("Bucket creation failed", zap.String("bucket", id), zap.Error(err))
		return fmt.Errorf("create bucket: %w", domain.NewCollaboratorError(domain.CollaboratorVectorStore, err))
	}

	s.logger.Info("Bucket created", zap.String("bucket", id))
	return nil
}

// Destroy drops the bucket and every point in it.
func (s *Service) Destroy(ctx context.Context, id string) error {
	if err := dombucket.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	if err := s.repo.Drop(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("bucket %s: %w", id, err)
		}
		s.logger.Error("Bucket drop failed", zap.String("bucket", id), zap.Error(err))
		return fmt.Errorf("drop bucket: %w", domain.NewCollaboratorError(domain.CollaboratorVectorStore, err))
	}

	s.logger.Info("Bucket destroyed", zap.String("bucket", id))
	return nil
}

// Exists reports whether the bucket exists. An invalid id is reported as an error, not as false.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if err := dombucket.ValidateID(id); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("bucket exists: %w", domain.NewCollaboratorError(domain.CollaboratorVectorStore, err))
	}
	return ok, nil
}
