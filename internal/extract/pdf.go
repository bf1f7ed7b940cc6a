package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// DefaultPDFTimeout bounds a single pdftotext run.
const DefaultPDFTimeout = 60 * time.Second

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stderr is attached to the error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PDF extracts text with poppler's pdftotext. Each page is terminated by a form feed.
type PDF struct {
	runner  CommandRunner
	binary  string
	timeout time.Duration
}

// PDFOption configures the PDF extractor.
type PDFOption func(*PDF)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) PDFOption {
	return func(p *PDF) { p.runner = r }
}

// WithBinary sets the pdftotext path.
func WithBinary(path string) PDFOption {
	return func(p *PDF) {
		if path != "" {
			p.binary = path
		}
	}
}

// WithTimeout bounds each extraction.
func WithTimeout(d time.Duration) PDFOption {
	return func(p *PDF) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPDF creates a PDF extractor.
func NewPDF(opts ...PDFOption) *PDF {
	p := &PDF{runner: ExecRunner{}, binary: "pdftotext", timeout: DefaultPDFTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract writes data to a temp file and runs pdftotext on it.
func (p *PDF) Extract(ctx context.Context, data []byte) ([]document.Page, error) {
	f, err := os.CreateTemp("", "ragchat-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on form feeds. Page numbers are kept for empty
// pages; the empty remainder after the final form feed is dropped.
func splitPages(out string) []document.Page {
	parts := strings.Split(out, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]document.Page, len(parts))
	for i, p := range parts {
		pages[i] = document.Page{Number: i + 1, Text: p}
	}
	return pages
}
