package ticket

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxIDLength bounds external ticket ids.
const MaxIDLength = 256

// Format is a supported image content type.
type Format string

const (
	// FormatJPEG is image/jpeg.
	FormatJPEG Format = "jpeg"
	// FormatPNG is image/png.
	FormatPNG Format = "png"
)

// MIME returns the canonical media type of the format.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	default:
		return ""
	}
}

// ParseFormat accepts media types ("image/png"), short names ("png", "jpg") and
// the upper-case enum names used by older clients ("PNG", "JPEG").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image/jpeg", "image/jpg", "jpeg", "jpg":
		return FormatJPEG, nil
	case "image/png", "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported image content type %q", s)
	}
}

// Image is raw image bytes with a declared format.
type Image struct {
	Content []byte
	Format  Format
}

// NewImage validates the declared type and sniffs the payload against it.
func NewImage(content []byte, contentType string) (Image, error) {
	f, err := ParseFormat(contentType)
	if err != nil {
		return Image{}, err
	}
	img := Image{Content: content, Format: f}
	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	return img, nil
}

// Validate checks that the payload is non-empty and really is the declared format.
func (i Image) Validate() error {
	if i.Format.MIME() == "" {
		return fmt.Errorf("unsupported image format %q", i.Format)
	}
	if len(i.Content) == 0 {
		return fmt.Errorf("image payload is empty")
	}
	if detected := mimetype.Detect(i.Content); !detected.Is(i.Format.MIME()) {
		return fmt.Errorf("image payload is %s, declared %s", detected.String(), i.Format.MIME())
	}
	return nil
}

// Ticket is the composite record indexed into a bucket.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Attachments []Image
}

// New validates and builds a ticket.
func New(id, title, description string, attachments []Image) (Ticket, error) {
	t := Ticket{ID: id, Title: title, Description: description, Attachments: attachments}
	if err := t.Validate(); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// ValidateID checks an external ticket id.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("ticket id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("ticket id too long (max %d)", MaxIDLength)
	}
	return nil
}

// Validate checks the id and every attachment.
func (t Ticket) Validate() error {
	if err := ValidateID(t.ID); err != nil {
		return err
	}
	for i, a := range t.Attachments {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}
