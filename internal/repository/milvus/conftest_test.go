package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
)

// mockAPI implements api for tests.
type mockAPI struct {
	hasCollectionFn    func(ctx context.Context, name string) (bool, error)
	createCollectionFn func(ctx context.Context, schema *entity.Schema) error
	createIndexFn      func(ctx context.Context, collection, field string, idx entity.Index) error
	loadCollectionFn   func(ctx context.Context, collection string) error
	dropCollectionFn   func(ctx context.Context, collection string) error
	vectorDimFn        func(ctx context.Context, collection, field string) (int, error)
	upsertFn           func(ctx context.Context, collection string, columns []entity.Column) error
	queryIDsFn         func(ctx context.Context, collection, expr string) ([]string, error)
	deleteFn           func(ctx context.Context, collection, expr string) error
	searchFn           func(ctx context.Context, collection string, vector []float32, topK, ef int) ([]row, error)
}

func (m *mockAPI) HasCollection(ctx context.Context, name string) (bool, error) {
	if m.hasCollectionFn != nil {
		return m.hasCollectionFn(ctx, name)
	}
	return false, nil
}

func (m *mockAPI) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if m.createCollectionFn != nil {
		return m.createCollectionFn(ctx, schema)
	}
	return nil
}

func (m *mockAPI) CreateIndex(ctx context.Context, collection, field string, idx entity.Index) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, collection, field, idx)
	}
	return nil
}

func (m *mockAPI) LoadCollection(ctx context.Context, collection string) error {
	if m.loadCollectionFn != nil {
		return m.loadCollectionFn(ctx, collection)
	}
	return nil
}

func (m *mockAPI) DropCollection(ctx context.Context, collection string) error {
	if m.dropCollectionFn != nil {
		return m.dropCollectionFn(ctx, collection)
	}
	return nil
}

func (m *mockAPI) VectorDim(ctx context.Context, collection, field string) (int, error) {
	if m.vectorDimFn != nil {
		return m.vectorDimFn(ctx, collection, field)
	}
	return 0, nil
}

func (m *mockAPI) Upsert(ctx context.Context, collection string, columns []entity.Column) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, columns)
	}
	return nil
}

func (m *mockAPI) QueryIDs(ctx context.Context, collection, expr string) ([]string, error) {
	if m.queryIDsFn != nil {
		return m.queryIDsFn(ctx, collection, expr)
	}
	return nil, nil
}

func (m *mockAPI) Delete(ctx context.Context, collection, expr string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, expr)
	}
	return nil
}

func (m *mockAPI) Search(ctx context.Context, collection string, vector []float32, topK, ef int) ([]row, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, collection, vector, topK, ef)
	}
	return nil, nil
}

func newTestStore(t *testing.T) (*Store, *mockAPI) {
	t.Helper()
	m := &mockAPI{}
	schema, err := bucket.NewSchema(4, 8)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return New(m, "", schema, HNSWConfig{}), m
}

func vec(dim int, v float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = v
	}
	return out
}
