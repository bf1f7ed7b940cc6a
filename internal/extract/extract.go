// Package extract turns uploaded files into per-page raw text.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// Extractor returns the pages of a single file format. Pages may have empty text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]document.Page, error)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry with the PDF extractor and the plain-text extractor
// for .txt and .md files.
func NewRegistry(pdf Extractor) *Registry {
	plain := PlainText{}
	return &Registry{byExt: map[string]Extractor{
		".pdf":      pdf,
		".txt":      plain,
		".md":       plain,
		".markdown": plain,
	}}
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[ext(filename)]
	return ok
}

// Extract routes data to the extractor registered for filename's extension.
func (r *Registry) Extract(ctx context.Context, filename string, data []byte) ([]document.Page, error) {
	e, ok := r.byExt[ext(filename)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedDocument, filepath.Ext(filename))
	}
	pages, err := e.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(filename), err)
	}
	return pages, nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// PlainText treats the whole file as a single page.
type PlainText struct{}

// Extract returns one page with the file contents.
func (PlainText) Extract(_ context.Context, data []byte) ([]document.Page, error) {
	return []document.Page{{Number: 1, Text: string(data)}}, nil
}
