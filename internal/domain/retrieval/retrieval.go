package retrieval

import "github.com/kailas-cloud/ragchat/internal/domain/document"

// Candidate is one nearest-neighbor hit as returned by a vector store.
// Meta and Distance are nil when the store did not return them.
type Candidate struct {
	ID       string
	Text     string
	Meta     *document.Metadata
	Distance *float64
}

// Result holds index-aligned retrieval output, ascending by distance.
type Result struct {
	Contexts  []string
	IDs       []string
	Metas     []*document.Metadata
	Distances []*float64
}

// Len returns the number of retrieved fragments.
func (r Result) Len() int { return len(r.Contexts) }

// Empty reports whether nothing was retrieved.
func (r Result) Empty() bool { return len(r.Contexts) == 0 }
