package collaborator

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
)

// BucketStore is bucket storage as the services see it.
type BucketStore interface {
	Create(ctx context.Context, id string) error
	Drop(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Schema(ctx context.Context, id string) (bucket.Schema, error)
}

// PointStore is point storage as the services see it.
type PointStore interface {
	Upsert(ctx context.Context, bucketID, ticketID string, points []point.Point) error
	RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error)
	Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error)
	Search(ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int) ([]point.Hit, error)
}

// GuardedBuckets runs every bucket storage call through the vector store guard.
type GuardedBuckets struct {
	inner BucketStore
	guard *Guard
}

// NewBuckets wraps inner with g.
func NewBuckets(inner BucketStore, g *Guard) *GuardedBuckets {
	return &GuardedBuckets{inner: inner, guard: g}
}

func (b *GuardedBuckets) Create(ctx context.Context, id string) error {
	_, err := call(ctx, b.guard, "create_bucket", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Create(ctx, id)
	})
	return err
}

func (b *GuardedBuckets) Drop(ctx context.Context, id string) error {
	_, err := call(ctx, b.guard, "drop_bucket", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Drop(ctx, id)
	})
	return err
}

func (b *GuardedBuckets) Exists(ctx context.Context, id string) (bool, error) {
	return call(ctx, b.guard, "bucket_exists", func(ctx context.Context) (bool, error) {
		return b.inner.Exists(ctx, id)
	})
}

func (b *GuardedBuckets) Schema(ctx context.Context, id string) (bucket.Schema, error) {
	return call(ctx, b.guard, "bucket_schema", func(ctx context.Context) (bucket.Schema, error) {
		return b.inner.Schema(ctx, id)
	})
}

// GuardedPoints runs every point storage call through the vector store guard.
type GuardedPoints struct {
	inner PointStore
	guard *Guard
}

// NewPoints wraps inner with g.
func NewPoints(inner PointStore, g *Guard) *GuardedPoints {
	return &GuardedPoints{inner: inner, guard: g}
}

func (p *GuardedPoints) Upsert(ctx context.Context, bucketID, ticketID string, points []point.Point) error {
	_, err := call(ctx, p.guard, "upsert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.inner.Upsert(ctx, bucketID, ticketID, points)
	})
	return err
}

func (p *GuardedPoints) RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error) {
	return call(ctx, p.guard, "remove_ticket", func(ctx context.Context) (int, error) {
		return p.inner.RemoveTicket(ctx, bucketID, ticketID)
	})
}

func (p *GuardedPoints) Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error) {
	return call(ctx, p.guard, "prune", func(ctx context.Context) (int, error) {
		return p.inner.Prune(ctx, bucketID, ticketID, keep)
	})
}

func (p *GuardedPoints) Search(
	ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int,
) ([]point.Hit, error) {
	return call(ctx, p.guard, "search", func(ctx context.Context) ([]point.Hit, error) {
		return p.inner.Search(ctx, bucketID, slot, vector, limit)
	})
}
