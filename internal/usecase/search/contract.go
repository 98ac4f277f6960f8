package search

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
)

// BucketChecker answers existence queries.
type BucketChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// PointSearcher runs one nearest-neighbor query on one slot.
type PointSearcher interface {
	Search(ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int) ([]point.Hit, error)
}
