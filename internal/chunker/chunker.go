package chunker

import (
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/text"
)

// Chunker turns pages into chunks.
type Chunker struct {
	splitter *Splitter
}

// New creates a Chunker backed by a Splitter built from opts.
func New(opts ...Option) *Chunker {
	return &Chunker{splitter: NewSplitter(opts...)}
}

// Chunk splits every page in order. Empty pages yield nothing; fragments are
// re-sanitized and dropped when they end up empty. ChunkIndex counts emitted
// fragments per page starting at 0.
func (c *Chunker) Chunk(pages []document.Page) []document.Chunk {
	var chunks []document.Chunk
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		idx := 0
		for _, frag := range c.splitter.Split(p.Text) {
			frag = text.Sanitize(frag)
			if frag == "" {
				continue
			}
			chunks = append(chunks, document.Chunk{
				PageNumber: p.Number,
				ChunkIndex: idx,
				Text:       frag,
			})
			idx++
		}
	}
	return chunks
}
