package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ContentHashLen is the number of hex characters kept from the SHA-256 digest.
const ContentHashLen = 16

// Document is an ingested source file.
type Document struct {
	SourceName  string
	ContentHash string
}

// New creates a Document for the given raw bytes.
func New(sourceName string, data []byte) Document {
	return Document{SourceName: sourceName, ContentHash: ContentHash(data)}
}

// ContentHash returns the short digest of raw document bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:ContentHashLen]
}

// Page is one unit of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is a contiguous window of a page's text.
type Chunk struct {
	PageNumber int
	ChunkIndex int
	Text       string
}

// ID returns the chunk identity key content_hash:page_number:chunk_index.
func (c Chunk) ID(contentHash string) string {
	return contentHash + ":" + strconv.Itoa(c.PageNumber) + ":" + strconv.Itoa(c.ChunkIndex)
}

// Metadata is stored alongside every indexed entry.
type Metadata struct {
	SourceName  string `json:"source_name"`
	PageNumber  int    `json:"page_number"`
	ChunkIndex  int    `json:"chunk_index"`
	ContentHash string `json:"content_hash"`
}

// DisplayID renders the identity shown to callers: hash:page:chunk with "doc" and "?"
// standing in for missing parts.
func (m Metadata) DisplayID() string {
	hash := m.ContentHash
	if hash == "" {
		hash = "doc"
	}
	page := "?"
	if m.PageNumber > 0 {
		page = strconv.Itoa(m.PageNumber)
	}
	return fmt.Sprintf("%s:%s:%d", hash, page, m.ChunkIndex)
}

// Entry is a chunk with its vector and metadata, keyed by chunk identity.
type Entry struct {
	ID       string
	Text     string
	Metadata Metadata
	Vector   []float32
}

// NewEntry builds an indexed entry for a chunk of doc.
func NewEntry(doc Document, c Chunk, vector []float32) Entry {
	return Entry{
		ID:   c.ID(doc.ContentHash),
		Text: c.Text,
		Metadata: Metadata{
			SourceName:  doc.SourceName,
			PageNumber:  c.PageNumber,
			ChunkIndex:  c.ChunkIndex,
			ContentHash: doc.ContentHash,
		},
		Vector: vector,
	}
}
