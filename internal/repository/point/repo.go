package point

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	dompoint "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
)

// store is the consumer interface for points (ISP).
type store interface {
	HSetGroup(ctx context.Context, groupKey string, items []db.HashSetItem) error
	GroupMembers(ctx context.Context, groupKey string) ([]string, error)
	DelFromGroup(ctx context.Context, groupKey string, keys []string) error
	DelGroup(ctx context.Context, groupKey string) (int, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements point storage for entry and search usecases.
// A ticket's point keys are tracked in a set, which makes removal a single keyed
// operation instead of an index query.
type Repo struct {
	store     store
	keys      layout.Keys
	efRuntime int
}

// New creates a point repository. efRuntime 0 keeps the server default.
func New(s store, keys layout.Keys, efRuntime int) *Repo {
	return &Repo{store: s, keys: keys, efRuntime: efRuntime}
}

// Upsert writes all points of a ticket in one transaction.
// Point ids are deterministic, so a repeated ingest overwrites in place.
func (r *Repo) Upsert(ctx context.Context, bucketID, ticketID string, points []dompoint.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(points))
	for i := range points {
		items = append(items, db.HashSetItem{
			Key:    r.keys.Point(bucketID, points[i].ID),
			Fields: pointToHash(&points[i]),
		})
	}

	if err := r.store.HSetGroup(ctx, r.keys.Ticket(bucketID, ticketID), items); err != nil {
		return fmt.Errorf("upsert ticket %s: %w", ticketID, err)
	}
	return nil
}

// RemoveTicket deletes every point of a ticket. An unknown ticket removes nothing.
func (r *Repo) RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error) {
	n, err := r.store.DelGroup(ctx, r.keys.Ticket(bucketID, ticketID))
	if err != nil {
		return 0, fmt.Errorf("remove ticket %s: %w", ticketID, err)
	}
	return n, nil
}

// Prune deletes points of the ticket whose ids are not in keep. Returns the number removed.
func (r *Repo) Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error) {
	groupKey := r.keys.Ticket(bucketID, ticketID)
	members, err := r.store.GroupMembers(ctx, groupKey)
	if err != nil {
		return 0, fmt.Errorf("list ticket %s points: %w", ticketID, err)
	}

	keepKeys := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepKeys[r.keys.Point(bucketID, id)] = struct{}{}
	}

	var stale []string
	for _, key := range members {
		if _, ok := keepKeys[key]; !ok {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := r.store.DelFromGroup(ctx, groupKey, stale); err != nil {
		return 0, fmt.Errorf("prune ticket %s: %w", ticketID, err)
	}
	return len(stale), nil
}

// Search returns the nearest points on one slot, best first.
func (r *Repo) Search(
	ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int,
) ([]dompoint.Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.Index(bucketID),
		Field:        layout.VectorField(slot),
		Vector:       vector,
		K:            limit,
		EFRuntime:    r.efRuntime,
		ReturnFields: []string{layout.FieldTicketID},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("search %s: %w", slot, err)
	}

	prefix := r.keys.PointPrefix(bucketID)
	hits := make([]dompoint.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		ticketID := e.Fields[layout.FieldTicketID]
		if ticketID == "" {
			continue
		}
		hits = append(hits, dompoint.Hit{
			PointID:  strings.TrimPrefix(e.Key, prefix),
			TicketID: ticketID,
			Score:    e.Score,
		})
	}
	return hits, nil
}
