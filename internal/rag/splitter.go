package rag

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter splits text on the coarsest separator present, recursing
// into pieces that are still too long, then merges neighbouring pieces back
// into chunks of at most chunkSize characters with up to overlap characters
// carried over between consecutive chunks.
//
// Lengths are counted in runes. Separators stay attached to the start of the
// piece that follows them, so every chunk is a substring of the input.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// SplitterOption configures a RecursiveSplitter.
type SplitterOption func(*RecursiveSplitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) SplitterOption {
	return func(s *RecursiveSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) SplitterOption {
	return func(s *RecursiveSplitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewRecursiveSplitter creates a splitter with the default size and overlap
// unless overridden.
func NewRecursiveSplitter(opts ...SplitterOption) *RecursiveSplitter {
	s := &RecursiveSplitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 10
	}
	return s
}

// ChunkSize returns the configured chunk size.
func (s *RecursiveSplitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *RecursiveSplitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in document order. Empty or whitespace-only
// text yields no chunks.
func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(next) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, next)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs consecutive pieces into chunks no longer than chunkSize. When a
// chunk is emitted, pieces are dropped from its front until at most overlap
// characters remain to seed the next chunk.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if total > s.chunkSize {
				slog.Debug("created a chunk longer than the configured size", "size", total, "chunk_size", s.chunkSize)
			}
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, keeping sep at the start of each
// following piece. An empty sep splits into single runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
