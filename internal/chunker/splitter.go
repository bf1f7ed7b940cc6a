// Package chunker splits page text into overlapping windows suitable for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Default window parameters, measured in runes.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 220
)

// DefaultSeparators are tried in order: paragraph, line, sentence end, period, space.
var DefaultSeparators = []string{"\n\n", "\n", ". ", ".", " "}

// Splitter recursively splits text on the first separator present, descending to finer
// separators for pieces still too long, then merges neighbouring pieces into windows of
// at most size runes that share up to overlap runes. Separators stay attached to the
// start of the piece that follows them.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the window size in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithOverlap sets the overlap between neighbouring windows in runes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// NewSplitter creates a Splitter.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		size:       DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}
	return s
}

// Split returns the windows for text. Windows are trimmed and never empty.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeepStart(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(piece, finer)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge packs pieces into windows, carrying a tail of at most overlap runes forward.
func (s *Splitter) merge(pieces []string) []string {
	var (
		windows []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if w := joinTrimmed(current); w != "" {
				windows = append(windows, w)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if w := joinTrimmed(current); w != "" {
		windows = append(windows, w)
	}
	return windows
}

func splitKeepStart(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
