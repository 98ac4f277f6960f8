package db

// KNNQuery is the input for vector similarity search on one vector field.
type KNNQuery struct {
	IndexName    string
	Field        string // vector field (alias) to search
	Vector       []float32
	K            int
	EFRuntime    int // HNSW EF_RUNTIME, 0 = server default
	ReturnFields []string
}

// ScoreField is the name FT.SEARCH gives the distance of a KNN clause on field.
func ScoreField(field string) string {
	return "__" + field + "_score"
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64 // cosine similarity, 1 - distance
	Fields map[string]string
}
