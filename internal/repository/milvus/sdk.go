package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Config holds Milvus connection parameters.
type Config struct {
	Address  string
	DBName   string
	Username string
	Password string
	TLS      bool
}

// SDK adapts client.Client to the narrow api the Store needs.
type SDK struct {
	c client.Client
}

var _ api = (*SDK)(nil)

// Dial connects to Milvus.
func Dial(ctx context.Context, cfg Config) (*SDK, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("milvus address is required")
	}
	c, err := client.NewClient(ctx, client.Config{
		Address:       cfg.Address,
		DBName:        cfg.DBName,
		Username:      cfg.Username,
		Password:      cfg.Password,
		EnableTLSAuth: cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create milvus client: %w", err)
	}
	return &SDK{c: c}, nil
}

// Close releases the connection.
func (s *SDK) Close() error {
	return s.c.Close()
}

// Ping lists collections as a connectivity probe.
func (s *SDK) Ping(ctx context.Context) error {
	_, err := s.c.ListCollections(ctx)
	return err
}

func (s *SDK) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.c.HasCollection(ctx, name)
}

// CreateCollection uses strong consistency so a search right after Put sees the new points.
func (s *SDK) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	return s.c.CreateCollection(ctx, schema, entity.DefaultShardNumber,
		client.WithConsistencyLevel(entity.ClStrong))
}

func (s *SDK) CreateIndex(ctx context.Context, collection, field string, idx entity.Index) error {
	return s.c.CreateIndex(ctx, collection, field, idx, false)
}

func (s *SDK) LoadCollection(ctx context.Context, collection string) error {
	return s.c.LoadCollection(ctx, collection, false)
}

func (s *SDK) DropCollection(ctx context.Context, collection string) error {
	return s.c.DropCollection(ctx, collection)
}

func (s *SDK) VectorDim(ctx context.Context, collection, field string) (int, error) {
	coll, err := s.c.DescribeCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	for _, f := range coll.Schema.Fields {
		if f.Name == field {
			return strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		}
	}
	return 0, fmt.Errorf("field %s not found in %s", field, collection)
}

func (s *SDK) Upsert(ctx context.Context, collection string, columns []entity.Column) error {
	_, err := s.c.Upsert(ctx, collection, "", columns...)
	return err
}

func (s *SDK) QueryIDs(ctx context.Context, collection, expr string) ([]string, error) {
	rs, err := s.c.Query(ctx, collection, nil, expr, []string{fieldID})
	if err != nil {
		return nil, err
	}
	for _, col := range rs {
		if col.Name() != fieldID {
			continue
		}
		if vc, ok := col.(*entity.ColumnVarChar); ok {
			return vc.Data(), nil
		}
	}
	return nil, nil
}

func (s *SDK) Delete(ctx context.Context, collection, expr string) error {
	return s.c.Delete(ctx, collection, "", expr)
}

func (s *SDK) Search(ctx context.Context, collection string, vector []float32, topK, ef int) ([]row, error) {
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("search params: %w", err)
	}

	results, err := s.c.Search(ctx, collection, nil, "",
		[]string{fieldTicketID},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	res := results[0]
	if res.Err != nil {
		return nil, res.Err
	}

	var ids, tickets []string
	if vc, ok := res.IDs.(*entity.ColumnVarChar); ok {
		ids = vc.Data()
	}
	for _, col := range res.Fields {
		if vc, ok := col.(*entity.ColumnVarChar); ok && col.Name() == fieldTicketID {
			tickets = vc.Data()
		}
	}

	rows := make([]row, 0, res.ResultCount)
	for i := 0; i < res.ResultCount && i < len(ids) && i < len(tickets) && i < len(res.Scores); i++ {
		rows = append(rows, row{ID: ids[i], TicketID: tickets[i], Score: res.Scores[i]})
	}
	return rows, nil
}
