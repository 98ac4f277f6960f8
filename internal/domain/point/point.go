package point

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
)

// Kind is the unit a point was built from.
type Kind string

const (
	// KindTitle is the ticket title.
	KindTitle Kind = "title"
	// KindDescription is the ticket description.
	KindDescription Kind = "description"
	// KindImage is one image attachment.
	KindImage Kind = "image"
)

// ID returns the deterministic point id for a unit of a ticket.
// UUIDv5 in the DNS namespace over "<ticket>_title", "<ticket>_desc" or "<ticket>_img_<i>".
func ID(ticketID string, kind Kind, index int) string {
	var name string
	switch kind {
	case KindTitle:
		name = ticketID + "_title"
	case KindDescription:
		name = ticketID + "_desc"
	default:
		name = ticketID + "_img_" + strconv.Itoa(index)
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// Point is one indexed unit of a ticket.
type Point struct {
	ID          string
	TicketID    string
	Kind        Kind
	ImageIndex  int
	Title       string
	Description string
	OCRText     string
	Vectors     map[bucket.Slot][]float32
}

// NewTitle builds the title point. A nil vec (blank title) leaves the point unindexed.
func NewTitle(ticketID, title, description string, vec []float32) Point {
	return Point{
		ID:          ID(ticketID, KindTitle, 0),
		TicketID:    ticketID,
		Kind:        KindTitle,
		Title:       title,
		Description: description,
		Vectors:     textVectors(bucket.SlotTitle, vec),
	}
}

// NewDescription builds the description point. A nil vec (blank description) leaves the point unindexed.
func NewDescription(ticketID, title, description string, vec []float32) Point {
	return Point{
		ID:          ID(ticketID, KindDescription, 0),
		TicketID:    ticketID,
		Kind:        KindDescription,
		Title:       title,
		Description: description,
		Vectors:     textVectors(bucket.SlotDescription, vec),
	}
}

func textVectors(slot bucket.Slot, vec []float32) map[bucket.Slot][]float32 {
	if len(vec) == 0 {
		return map[bucket.Slot][]float32{}
	}
	return map[bucket.Slot][]float32{slot: vec}
}

// NewImage builds the point of attachment idx. ocrVec may be nil when no text was recognized.
func NewImage(
	ticketID, title, description string, idx int,
	imageVec []float32, ocrText string, ocrVec []float32,
) Point {
	vectors := map[bucket.Slot][]float32{bucket.SlotImage: imageVec}
	if len(ocrVec) > 0 {
		vectors[bucket.SlotOCRText] = ocrVec
	}
	return Point{
		ID:          ID(ticketID, KindImage, idx),
		TicketID:    ticketID,
		Kind:        KindImage,
		ImageIndex:  idx,
		Title:       title,
		Description: description,
		OCRText:     ocrText,
		Vectors:     vectors,
	}
}

// Validate checks the vectors against the bucket schema.
// Title and description points may carry no vector; an image point always has one.
func (p Point) Validate(schema bucket.Schema) error {
	if len(p.Vectors) == 0 && (p.Kind == KindImage || p.Kind == "") {
		return fmt.Errorf("point %s has no vectors", p.ID)
	}
	for slot, vec := range p.Vectors {
		if !slot.IsValid() {
			return fmt.Errorf("point %s: unknown slot %q", p.ID, slot)
		}
		if want := schema.Dim(slot); len(vec) != want {
			return fmt.Errorf("point %s: slot %s has %d dimensions, want %d", p.ID, slot, len(vec), want)
		}
	}
	return nil
}

// Hit is one nearest-neighbor candidate.
type Hit struct {
	PointID  string
	TicketID string
	Score    float64
}
