package bucket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
)

// delBatch bounds the number of keys per DEL when a bucket is dropped.
const delBatch = 500

// store is the consumer interface for buckets (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/bucket.Repository on top of FT indexes.
type Repo struct {
	store  store
	keys   layout.Keys
	schema dombucket.Schema
	hnsw   HNSWConfig
	now    func() time.Time
}

// New creates a bucket repository. schema is applied to every new bucket.
func New(s store, keys layout.Keys, schema dombucket.Schema) *Repo {
	return &Repo{
		store:  s,
		keys:   keys,
		schema: schema,
		hnsw:   HNSWConfig{M: 16, EFConstruct: 200},
		now:    time.Now,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Create runs FT.CREATE, then records the schema in the meta hash.
// FT.CREATE decides the winner among concurrent creators; the loser gets ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, id string) error {
	def, err := buildIndex(r.keys, id, r.schema, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}

	meta := map[string]string{
		metaTextDim:       strconv.Itoa(r.schema.TextDim()),
		metaMultimodalDim: strconv.Itoa(r.schema.MultimodalDim()),
		metaCreatedAt:     strconv.FormatInt(r.now().UnixMilli(), 10),
	}
	if err := r.store.HSet(ctx, r.keys.Meta(id), meta); err != nil {
		// индекс без меты не нужен, откатываем
		rollbackErr := r.store.DropIndex(ctx, def.Name)
		return errors.Join(fmt.Errorf("hset bucket meta %s: %w", id, err), rollbackErr)
	}

	return nil
}

// Drop deletes the meta hash, then every point, then the index.
// The index goes last: while it exists the bucket is still reported present, so a drop that
// failed half way can be retried.
func (r *Repo) Drop(ctx context.Context, id string) error {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}

	// без меты Schema отвечает NotFound, новые Put сюда уже не пишут
	if _, err := r.store.Del(ctx, r.keys.Meta(id)); err != nil {
		return fmt.Errorf("delete bucket meta %s: %w", id, err)
	}
	if err := r.sweep(ctx, id); err != nil {
		return err
	}

	if err := r.store.DropIndex(ctx, r.keys.Index(id)); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("drop index %s: %w", id, err)
	}

	// points of a Put that read the schema before the meta was deleted
	return r.sweep(ctx, id)
}

func (r *Repo) sweep(ctx context.Context, id string) error {
	keys, err := r.store.Scan(ctx, r.keys.Pattern(id))
	if err != nil {
		return fmt.Errorf("scan bucket %s: %w", id, err)
	}
	for start := 0; start < len(keys); start += delBatch {
		end := min(start+delBatch, len(keys))
		if _, err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("delete bucket %s keys: %w", id, err)
		}
	}
	return nil
}

// Exists reports whether the bucket index exists.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.keys.Index(id))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", id, err)
	}
	return ok, nil
}

// Schema returns the slot layout the bucket was created with.
// A bucket is writable only while both its index and its meta exist: Create writes the meta
// last and Drop deletes it first.
func (r *Repo) Schema(ctx context.Context, id string) (dombucket.Schema, error) {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return dombucket.Schema{}, err
	}
	if !ok {
		return dombucket.Schema{}, domain.ErrNotFound
	}

	m, err := r.store.HGetAll(ctx, r.keys.Meta(id))
	if err != nil {
		return dombucket.Schema{}, fmt.Errorf("hgetall bucket meta %s: %w", id, err)
	}
	if len(m) == 0 {
		return dombucket.Schema{}, domain.ErrNotFound
	}
	return schemaFromMeta(m)
}
