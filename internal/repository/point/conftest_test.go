package point

import (
	"context"
	"testing"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetGroupFn    func(ctx context.Context, groupKey string, items []db.HashSetItem) error
	groupMembersFn func(ctx context.Context, groupKey string) ([]string, error)
	delFromGroupFn func(ctx context.Context, groupKey string, keys []string) error
	delGroupFn     func(ctx context.Context, groupKey string) (int, error)
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSetGroup(ctx context.Context, groupKey string, items []db.HashSetItem) error {
	if m.hsetGroupFn != nil {
		return m.hsetGroupFn(ctx, groupKey, items)
	}
	return nil
}

func (m *mockStore) GroupMembers(ctx context.Context, groupKey string) ([]string, error) {
	if m.groupMembersFn != nil {
		return m.groupMembersFn(ctx, groupKey)
	}
	return nil, nil
}

func (m *mockStore) DelFromGroup(ctx context.Context, groupKey string, keys []string) error {
	if m.delFromGroupFn != nil {
		return m.delFromGroupFn(ctx, groupKey, keys)
	}
	return nil
}

func (m *mockStore) DelGroup(ctx context.Context, groupKey string) (int, error) {
	if m.delGroupFn != nil {
		return m.delGroupFn(ctx, groupKey)
	}
	return 0, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, layout.New(""), 64), ms
}

func vec(dim int, v float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = v
	}
	return out
}
