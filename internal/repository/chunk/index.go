package chunk

import "github.com/kailas-cloud/ragchat/internal/db"

// Key layout.
const (
	IndexName    = "ragchat:chunks:idx"
	KeyPrefix    = "ragchat:chunk:"
	SourcePrefix = "ragchat:source:"
)

// Hash field names.
const (
	fieldContent     = "__content"
	fieldVector      = "__vector"
	fieldSourceName  = "source_name"
	fieldContentHash = "content_hash"
	fieldPageNumber  = "page_number"
	fieldChunkIndex  = "chunk_index"
)

// HNSWConfig holds the HNSW build parameters of the chunk index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

func chunkKey(id string) string { return KeyPrefix + id }

func sourceKey(source string) string { return SourcePrefix + source }

// chunkSchema is the chunk index layout for vectors of the given dimension.
// KNN queries address the vector as @vector.
func chunkSchema(dim int, hnsw HNSWConfig) db.Schema {
	return db.Schema{
		Name:    IndexName,
		Prefix:  KeyPrefix,
		Tags:    []string{fieldSourceName, fieldContentHash},
		Numbers: []string{fieldPageNumber, fieldChunkIndex},
		Vector: db.VectorSpec{
			Field:          fieldVector,
			Alias:          "vector",
			Dim:            dim,
			M:              hnsw.M,
			EFConstruction: hnsw.EFConstruct,
		},
	}
}
