package bucket

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxIDLength bounds bucket ids.
const MaxIDLength = 64

// Default slot dimensionalities.
const (
	DefaultTextDim       = 384
	DefaultMultimodalDim = 1536
)

// Slot is a named vector slot inside a bucket.
type Slot string

const (
	// SlotTitle holds the title text vector.
	SlotTitle Slot = "title"
	// SlotDescription holds the description text vector.
	SlotDescription Slot = "description"
	// SlotImage holds the multimodal image vector.
	SlotImage Slot = "image"
	// SlotOCRText holds the vector of text recognized on an image.
	SlotOCRText Slot = "ocr_text"
)

// Slots lists every slot in schema order.
func Slots() []Slot {
	return []Slot{SlotTitle, SlotDescription, SlotImage, SlotOCRText}
}

// IsValid reports whether s is a known slot.
func (s Slot) IsValid() bool {
	switch s {
	case SlotTitle, SlotDescription, SlotImage, SlotOCRText:
		return true
	}
	return false
}

// ValidateID checks that id is a well-formed bucket identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("bucket id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("bucket id too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("bucket id must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// Schema is the fixed slot layout of a bucket. All slots use cosine distance.
type Schema struct {
	textDim       int
	multimodalDim int
}

// NewSchema validates dimensionalities.
func NewSchema(textDim, multimodalDim int) (Schema, error) {
	if textDim <= 0 {
		return Schema{}, fmt.Errorf("text dimensionality must be positive, got %d", textDim)
	}
	if multimodalDim <= 0 {
		return Schema{}, fmt.Errorf("multimodal dimensionality must be positive, got %d", multimodalDim)
	}
	return Schema{textDim: textDim, multimodalDim: multimodalDim}, nil
}

// DefaultSchema returns the 384/1536 layout.
func DefaultSchema() Schema {
	return Schema{textDim: DefaultTextDim, multimodalDim: DefaultMultimodalDim}
}

// TextDim returns D_text.
func (s Schema) TextDim() int { return s.textDim }

// MultimodalDim returns D_mm.
func (s Schema) MultimodalDim() int { return s.multimodalDim }

// Dim returns the dimensionality of a slot, 0 for unknown slots.
func (s Schema) Dim(slot Slot) int {
	switch slot {
	case SlotTitle, SlotDescription, SlotOCRText:
		return s.textDim
	case SlotImage:
		return s.multimodalDim
	}
	return 0
}
