package bucket

import (
	"fmt"
	"strconv"

	dombucket "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
)

const (
	metaTextDim       = "text_dim"
	metaMultimodalDim = "multimodal_dim"
	metaCreatedAt     = "created_at"
)

func schemaFromMeta(m map[string]string) (dombucket.Schema, error) {
	textDim, err := strconv.Atoi(m[metaTextDim])
	if err != nil {
		return dombucket.Schema{}, fmt.Errorf("parse %s: %w", metaTextDim, err)
	}
	mmDim, err := strconv.Atoi(m[metaMultimodalDim])
	if err != nil {
		return dombucket.Schema{}, fmt.Errorf("parse %s: %w", metaMultimodalDim, err)
	}
	return dombucket.NewSchema(textDim, mmDim)
}
