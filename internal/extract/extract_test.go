package extract

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
	seen   []byte
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	if len(args) >= 2 {
		m.seen, _ = os.ReadFile(args[len(args)-2])
	}
	return m.output, m.err
}

func TestPDF_SplitsPagesOnFormFeed(t *testing.T) {
	r := &mockRunner{output: []byte("page one\fpage two\f\f")}
	p := NewPDF(WithRunner(r))

	pages, err := p.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, document.Page{Number: 1, Text: "page one"}, pages[0])
	assert.Equal(t, document.Page{Number: 2, Text: "page two"}, pages[1])
	assert.Equal(t, document.Page{Number: 3, Text: ""}, pages[2])

	assert.Equal(t, "pdftotext", r.name)
	assert.Contains(t, r.args, "-layout")
	assert.Equal(t, "-", r.args[len(r.args)-1])
	assert.Equal(t, []byte("%PDF-1.4"), r.seen)
}

func TestPDF_NoFormFeed(t *testing.T) {
	p := NewPDF(WithRunner(&mockRunner{output: []byte("only page")}))

	pages, err := p.Extract(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "only page", pages[0].Text)
}

func TestPDF_RunnerError(t *testing.T) {
	p := NewPDF(WithRunner(&mockRunner{err: errors.New("exit status 1")}))

	_, err := p.Extract(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestPDF_CustomBinary(t *testing.T) {
	r := &mockRunner{output: []byte("a")}
	p := NewPDF(WithRunner(r), WithBinary("/usr/local/bin/pdftotext"))

	_, err := p.Extract(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/pdftotext", r.name)
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry(NewPDF(WithRunner(&mockRunner{output: []byte("pdf text")})))
	ctx := context.Background()

	pages, err := reg.Extract(ctx, "Report.PDF", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "pdf text", pages[0].Text)

	pages, err = reg.Extract(ctx, "notes.md", []byte("# title"))
	require.NoError(t, err)
	assert.Equal(t, []document.Page{{Number: 1, Text: "# title"}}, pages)
}

func TestRegistry_Unsupported(t *testing.T) {
	reg := NewRegistry(NewPDF())

	assert.False(t, reg.Supports("image.png"))
	assert.True(t, reg.Supports("doc.pdf"))

	_, err := reg.Extract(context.Background(), "image.png", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)
}
