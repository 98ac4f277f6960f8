package chi

import (
	"encoding/base64"
	"fmt"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// imageDTO is an attachment or query image. Content is standard base64.
type imageDTO struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type putTicketRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Attachments []imageDTO `json:"attachments"`
}

type putTicketResponse struct {
	TicketID string `json:"ticket_id"`
	Points   int    `json:"points"`
}

type removeTicketResponse struct {
	Removed int `json:"removed"`
}

type findRequest struct {
	Query  string     `json:"query"`
	Images []imageDTO `json:"images"`
	TopK   int        `json:"top_k"`
}

type findResponse struct {
	TicketIDs []string `json:"ticket_ids"`
}

type bucketResponse struct {
	Bucket string `json:"bucket"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// imagesFromDTO decodes base64 payloads. Format and content checks happen in the services.
func imagesFromDTO(in []imageDTO, what string) ([]ticket.Image, error) {
	out := make([]ticket.Image, 0, len(in))
	for i, d := range in {
		content, err := base64.StdEncoding.DecodeString(d.Content)
		if err != nil {
			return nil, fmt.Errorf("%s %d: content is not valid base64", what, i)
		}
		f, err := ticket.ParseFormat(d.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", what, i, err)
		}
		out = append(out, ticket.Image{Content: content, Format: f})
	}
	return out, nil
}
