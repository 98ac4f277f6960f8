package entry

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
)

// BucketRepository answers existence and schema queries.
type BucketRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Schema returns domain.ErrNotFound for a missing bucket.
	Schema(ctx context.Context, id string) (bucket.Schema, error)
}

// PointRepository writes and deletes ticket points.
type PointRepository interface {
	Upsert(ctx context.Context, bucketID, ticketID string, points []point.Point) error
	RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error)
	Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error)
}
