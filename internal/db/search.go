package db

// TagFilter restricts a query to documents whose TAG field equals Value.
type TagFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string // the distance is always returned in addition
}

// CountQuery is the input for document counting. KeyPrefix is used by backends that
// cannot run a bare "*" FT.SEARCH and fall back to SCAN.
type CountQuery struct {
	IndexName string
	Query     string
	KeyPrefix string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single KNN hit. Distance is the raw cosine distance
// (0 is identical), nil when the server returned none.
type SearchEntry struct {
	Key      string
	Distance *float64
	Fields   map[string]string
}
