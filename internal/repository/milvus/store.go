// Package milvus stores buckets in Milvus: one collection per (bucket, slot).
//
// Collections are independent, so a multi-slot upsert is not atomic across
// them. Readers can briefly see a ticket's title point without its image points.
package milvus

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
)

const (
	fieldID          = "id"
	fieldTicketID    = "ticket_id"
	fieldKind        = "kind"
	fieldImageIndex  = "img_idx"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldOCRText     = "ocr_text"
	fieldVector      = "vector"

	maxVarChar  = 65535
	maxTicketID = 1024
)

// row is one search result.
type row struct {
	ID       string
	TicketID string
	Score    float32
}

// api is the subset of the Milvus client the Store drives.
//
//nolint:interfacebloat // mirrors the collection lifecycle
type api interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema) error
	CreateIndex(ctx context.Context, collection, field string, idx entity.Index) error
	LoadCollection(ctx context.Context, collection string) error
	DropCollection(ctx context.Context, collection string) error
	VectorDim(ctx context.Context, collection, field string) (int, error)
	Upsert(ctx context.Context, collection string, columns []entity.Column) error
	QueryIDs(ctx context.Context, collection, expr string) ([]string, error)
	Delete(ctx context.Context, collection, expr string) error
	Search(ctx context.Context, collection string, vector []float32, topK, ef int) ([]row, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
	EFSearch    int
}

// Store implements the bucket and point repositories on Milvus.
type Store struct {
	api    api
	prefix string
	schema bucket.Schema
	hnsw   HNSWConfig
}

// New creates a Milvus store. prefix starts every collection name.
func New(a api, prefix string, schema bucket.Schema, hnsw HNSWConfig) *Store {
	if prefix == "" {
		prefix = "cbs"
	}
	if hnsw.M <= 0 {
		hnsw.M = 16
	}
	if hnsw.EFConstruct <= 0 {
		hnsw.EFConstruct = 200
	}
	if hnsw.EFSearch <= 0 {
		hnsw.EFSearch = 64
	}
	return &Store{api: a, prefix: prefix, schema: schema, hnsw: hnsw}
}

// collection names must match [a-zA-Z_][a-zA-Z0-9_]*; bucket ids may contain '-', so hex them.
func (s *Store) collection(bucketID string, slot bucket.Slot) string {
	return s.prefix + "_" + hex.EncodeToString([]byte(bucketID)) + "_" + string(slot)
}

// --- buckets ---

// Create creates, indexes and loads the four slot collections.
// Existence check and creation are separate calls, so two racing creators may both pass the
// check; the loser then fails on CreateCollection and gets ErrAlreadyExists.
// On failure the collections created by this call are dropped again, so a retry starts clean.
func (s *Store) Create(ctx context.Context, id string) error {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	var created []string
	for _, slot := range bucket.Slots() {
		name := s.collection(id, slot)
		if err := s.api.CreateCollection(ctx, s.collectionSchema(name, s.schema.Dim(slot))); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "already exist") {
				return errors.Join(domain.ErrAlreadyExists, s.rollback(ctx, created))
			}
			return errors.Join(fmt.Errorf("create collection %s: %w", name, err), s.rollback(ctx, created))
		}
		created = append(created, name)

		if err := s.prepare(ctx, name); err != nil {
			return errors.Join(err, s.rollback(ctx, created))
		}
	}
	return nil
}

// prepare builds the HNSW index of a fresh collection and loads it.
func (s *Store) prepare(ctx context.Context, name string) error {
	idx, err := entity.NewIndexHNSW(entity.COSINE, s.hnsw.M, s.hnsw.EFConstruct)
	if err != nil {
		return fmt.Errorf("hnsw index: %w", err)
	}
	if err := s.api.CreateIndex(ctx, name, fieldVector, idx); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	if err := s.api.LoadCollection(ctx, name); err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) rollback(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := s.api.DropCollection(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("rollback collection %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) collectionSchema(name string, dim int) *entity.Schema {
	varchar := func(n string, maxLen int) *entity.Field {
		return entity.NewField().WithName(n).WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(maxLen))
	}
	return entity.NewSchema().
		WithName(name).
		WithDescription("cloudberry storage slot").
		WithField(varchar(fieldID, 64).WithIsPrimaryKey(true)).
		WithField(varchar(fieldTicketID, maxTicketID)).
		WithField(varchar(fieldKind, 16)).
		WithField(entity.NewField().WithName(fieldImageIndex).WithDataType(entity.FieldTypeInt64)).
		WithField(varchar(fieldTitle, maxVarChar)).
		WithField(varchar(fieldDescription, maxVarChar)).
		WithField(varchar(fieldOCRText, maxVarChar)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// Drop drops every slot collection of the bucket.
func (s *Store) Drop(ctx context.Context, id string) error {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	var errs []error
	for _, slot := range bucket.Slots() {
		name := s.collection(id, slot)
		if err := s.api.DropCollection(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("drop collection %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Exists checks the description collection, which every text search touches.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.api.HasCollection(ctx, s.collection(id, bucket.SlotDescription))
	if err != nil {
		return false, fmt.Errorf("has collection: %w", err)
	}
	return ok, nil
}

// Schema reads the vector dims back from the collections.
func (s *Store) Schema(ctx context.Context, id string) (bucket.Schema, error) {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return bucket.Schema{}, err
	}
	if !exists {
		return bucket.Schema{}, domain.ErrNotFound
	}

	textDim, err := s.api.VectorDim(ctx, s.collection(id, bucket.SlotDescription), fieldVector)
	if err != nil {
		return bucket.Schema{}, fmt.Errorf("describe text slot: %w", err)
	}
	mmDim, err := s.api.VectorDim(ctx, s.collection(id, bucket.SlotImage), fieldVector)
	if err != nil {
		return bucket.Schema{}, fmt.Errorf("describe image slot: %w", err)
	}
	return bucket.NewSchema(textDim, mmDim)
}

// --- points ---

// Upsert writes each slot's rows into its collection, then deletes the ids from the slots
// they no longer fill, so a re-ingested point does not keep a vector from its previous version.
func (s *Store) Upsert(ctx context.Context, bucketID, _ string, points []point.Point) error {
	bySlot := make(map[bucket.Slot][]*point.Point)
	missing := make(map[bucket.Slot][]string)
	for i := range points {
		for _, slot := range bucket.Slots() {
			if _, ok := points[i].Vectors[slot]; ok {
				bySlot[slot] = append(bySlot[slot], &points[i])
			} else {
				missing[slot] = append(missing[slot], points[i].ID)
			}
		}
	}

	for _, slot := range bucket.Slots() {
		pts := bySlot[slot]
		if len(pts) == 0 {
			continue
		}
		name := s.collection(bucketID, slot)
		if err := s.api.Upsert(ctx, name, s.columns(slot, pts)); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}

	for _, slot := range bucket.Slots() {
		ids := missing[slot]
		if len(ids) == 0 {
			continue
		}
		name := s.collection(bucketID, slot)
		if err := s.api.Delete(ctx, name, idsExpr(ids)); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) columns(slot bucket.Slot, pts []*point.Point) []entity.Column {
	n := len(pts)
	ids := make([]string, n)
	tickets := make([]string, n)
	kinds := make([]string, n)
	imgIdx := make([]int64, n)
	titles := make([]string, n)
	descs := make([]string, n)
	ocr := make([]string, n)
	vectors := make([][]float32, n)

	for i, p := range pts {
		ids[i] = p.ID
		tickets[i] = p.TicketID
		kinds[i] = string(p.Kind)
		imgIdx[i] = int64(p.ImageIndex)
		titles[i] = truncate(p.Title, maxVarChar)
		descs[i] = truncate(p.Description, maxVarChar)
		ocr[i] = truncate(p.OCRText, maxVarChar)
		vectors[i] = p.Vectors[slot]
	}

	return []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldTicketID, tickets),
		entity.NewColumnVarChar(fieldKind, kinds),
		entity.NewColumnInt64(fieldImageIndex, imgIdx),
		entity.NewColumnVarChar(fieldTitle, titles),
		entity.NewColumnVarChar(fieldDescription, descs),
		entity.NewColumnVarChar(fieldOCRText, ocr),
		entity.NewColumnFloatVector(fieldVector, s.schema.Dim(slot), vectors),
	}
}

// RemoveTicket deletes the ticket's rows from every slot collection.
// The returned count is the number of distinct point ids removed.
func (s *Store) RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error) {
	return s.deleteWhere(ctx, bucketID, ticketExpr(ticketID))
}

// Prune deletes the ticket's rows whose ids are not in keep.
func (s *Store) Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error) {
	expr := ticketExpr(ticketID)
	if len(keep) > 0 {
		expr += " && " + fieldID + " not in " + quoteList(keep)
	}
	return s.deleteWhere(ctx, bucketID, expr)
}

func (s *Store) deleteWhere(ctx context.Context, bucketID, expr string) (int, error) {
	removed := make(map[string]struct{})
	for _, slot := range bucket.Slots() {
		name := s.collection(bucketID, slot)
		ids, err := s.api.QueryIDs(ctx, name, expr)
		if err != nil {
			return 0, fmt.Errorf("query %s: %w", name, err)
		}
		if len(ids) == 0 {
			continue
		}
		if err := s.api.Delete(ctx, name, expr); err != nil {
			return 0, fmt.Errorf("delete from %s: %w", name, err)
		}
		for _, id := range ids {
			removed[id] = struct{}{}
		}
	}
	return len(removed), nil
}

// Search returns the nearest rows of one slot collection.
func (s *Store) Search(
	ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int,
) ([]point.Hit, error) {
	name := s.collection(bucketID, slot)
	rows, err := s.api.Search(ctx, name, vector, limit, max(s.hnsw.EFSearch, limit))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "collection not found") {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	hits := make([]point.Hit, 0, len(rows))
	for _, r := range rows {
		// COSINE in Milvus is already a similarity
		hits = append(hits, point.Hit{PointID: r.ID, TicketID: r.TicketID, Score: float64(r.Score)})
	}
	return hits, nil
}

func ticketExpr(ticketID string) string {
	return fieldTicketID + " == " + quote(ticketID)
}

func idsExpr(ids []string) string {
	return fieldID + " in " + quoteList(ids)
}

// quoteList renders ["a", "b"].
func quoteList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = quote(id)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + exprEscaper.Replace(s) + `"`
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
