package chunk

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

// returnFields lists the hash fields fetched by KNN queries.
var returnFields = []string{
	fieldContent, fieldSourceName, fieldContentHash, fieldPageNumber, fieldChunkIndex,
}

// toHashItem flattens an entry into HSET fields.
func toHashItem(e document.Entry) db.HashSetItem {
	return db.HashSetItem{
		Key: chunkKey(e.ID),
		Fields: map[string]string{
			fieldContent:     e.Text,
			fieldVector:      vectorToBytes(e.Vector),
			fieldSourceName:  e.Metadata.SourceName,
			fieldContentHash: e.Metadata.ContentHash,
			fieldPageNumber:  strconv.Itoa(e.Metadata.PageNumber),
			fieldChunkIndex:  strconv.Itoa(e.Metadata.ChunkIndex),
		},
	}
}

// toCandidate converts a KNN hit. Metadata is nil when the hash carries none of the
// metadata fields; Distance is nil when no score was returned.
func toCandidate(entry db.SearchEntry) retrieval.Candidate {
	c := retrieval.Candidate{
		ID:   strings.TrimPrefix(entry.Key, KeyPrefix),
		Text: entry.Fields[fieldContent],
	}
	c.Distance = entry.Distance

	source, hasSource := entry.Fields[fieldSourceName]
	hash, hasHash := entry.Fields[fieldContentHash]
	page, hasPage := entry.Fields[fieldPageNumber]
	idx, hasIdx := entry.Fields[fieldChunkIndex]
	if !hasSource && !hasHash && !hasPage && !hasIdx {
		return c
	}
	meta := &document.Metadata{SourceName: source, ContentHash: hash}
	if n, err := strconv.Atoi(page); err == nil {
		meta.PageNumber = n
	}
	if n, err := strconv.Atoi(idx); err == nil {
		meta.ChunkIndex = n
	}
	c.Meta = meta
	return c
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
