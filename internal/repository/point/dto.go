package point

import (
	"strconv"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
	dompoint "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/repository/layout"
)

func pointToHash(p *dompoint.Point) map[string]string {
	m := map[string]string{
		layout.FieldTicketID:    p.TicketID,
		layout.FieldKind:        string(p.Kind),
		layout.FieldTitle:       p.Title,
		layout.FieldDescription: p.Description,
	}
	if p.Kind == dompoint.KindImage {
		m[layout.FieldImageIndex] = strconv.Itoa(p.ImageIndex)
		m[layout.FieldOCRText] = p.OCRText
	}
	for slot, vec := range p.Vectors {
		m[layout.VectorField(slot)] = db.EncodeVector(vec)
	}
	return m
}
