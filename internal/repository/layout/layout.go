// Package layout names the Redis/Valkey keys and index attributes of a bucket.
//
// Every key of a bucket carries the {bucket} hash tag, so a cluster keeps the
// whole bucket on one slot and MULTI/EXEC or Lua may touch any of its keys.
package layout

import "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "cbs:"

// Payload fields stored next to the vectors of a point hash.
const (
	FieldTicketID    = "ticket_id"
	FieldKind        = "type"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldOCRText     = "ocr_text"
	FieldImageIndex  = "img_idx"
)

// Keys builds key names under a common prefix.
type Keys struct {
	prefix string
}

// New returns Keys for prefix, falling back to DefaultPrefix.
func New(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Prefix returns the configured prefix.
func (k Keys) Prefix() string { return k.prefix }

// Index is the FT index name of a bucket.
func (k Keys) Index(bucketID string) string {
	return k.prefix + bucketID + ":idx"
}

// PointPrefix is the key prefix the bucket index watches.
func (k Keys) PointPrefix(bucketID string) string {
	return k.tag(bucketID) + "pt:"
}

// Point is the hash key of a point.
func (k Keys) Point(bucketID, pointID string) string {
	return k.PointPrefix(bucketID) + pointID
}

// Ticket is the set key listing the point keys of a ticket.
func (k Keys) Ticket(bucketID, ticketID string) string {
	return k.tag(bucketID) + "tk:" + ticketID
}

// Meta is the hash key holding bucket metadata.
func (k Keys) Meta(bucketID string) string {
	return k.tag(bucketID) + "meta"
}

// Pattern matches every key of a bucket for SCAN.
func (k Keys) Pattern(bucketID string) string {
	return k.tag(bucketID) + "*"
}

func (k Keys) tag(bucketID string) string {
	return k.prefix + "{" + bucketID + "}:"
}

// VectorField is the hash field and index attribute holding a slot's vector.
func VectorField(slot bucket.Slot) string {
	return "vec_" + string(slot)
}
