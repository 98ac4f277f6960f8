package bucket

import "context"

// Repository defines the storage contract for buckets.
type Repository interface {
	Create(ctx context.Context, id string) error
	Drop(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}
