package bucket

import (
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
)

// buildIndex declares the four vector slots.
// A point hash carries only the slots it fills; missing fields are simply not indexed for it.
// Ticket membership lives in the per-ticket group set, so ticket_id needs no index field.
func buildIndex(keys layout.Keys, id string, schema dombucket.Schema, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(keys.Index(id)).
		Prefix(keys.PointPrefix(id))

	for _, slot := range dombucket.Slots() {
		b = b.Vector(layout.VectorField(slot), schema.Dim(slot), db.HNSW{M: hnsw.M, EFConstruct: hnsw.EFConstruct})
	}

	return b.Build()
}
