package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed id, unsupported image type or empty payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing bucket.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate bucket.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInternal signals a collaborator failure (embedding, translation, OCR, vector store).
	ErrInternal = errors.New("internal error")
	// ErrOverloaded signals that the worker pool had no free slot in time.
	ErrOverloaded = errors.New("overloaded")
)

// Collaborator names used in logs, metrics and CollaboratorError.
const (
	CollaboratorTextEmbedder       = "text_embedder"
	CollaboratorMultimodalEmbedder = "multimodal_embedder"
	CollaboratorOCR                = "ocr"
	CollaboratorTranslator         = "translator"
	CollaboratorVectorStore        = "vector_store"
)

// CollaboratorError wraps a failure of an external collaborator.
// errors.Is matches both ErrInternal and the underlying cause.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() []error { return []error{ErrInternal, e.Err} }

// NewCollaboratorError wraps err as a failure of the named collaborator.
// Errors that already carry a domain classification are returned unchanged.
func NewCollaboratorError(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrInternal) {
		return err
	}
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// CollaboratorOf returns the collaborator name carried by err, or "" if none.
func CollaboratorOf(err error) string {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Collaborator
	}
	return ""
}
