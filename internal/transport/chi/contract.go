package chi

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
	healthuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/health"
)

// BucketService creates and destroys buckets.
type BucketService interface {
	Init(ctx context.Context, id string) error
	Destroy(ctx context.Context, id string) error
}

// EntryService ingests and removes tickets.
type EntryService interface {
	Put(ctx context.Context, bucketID string, t ticket.Ticket) (int, error)
	Remove(ctx context.Context, bucketID, ticketID string) (int, error)
}

// SearchService answers composite queries.
type SearchService interface {
	Find(ctx context.Context, bucketID, queryText string, queryImages []ticket.Image, topK int) ([]string, error)
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
