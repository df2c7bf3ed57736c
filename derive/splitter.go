package derive

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Fragment is a split piece of document text with its byte offsets in the
// source. Offsets are what make a chunk traceable back to the document.
type Fragment struct {
	Text  string
	Start uint32
	End   uint32
}

// Splitter partitions document text into fragments. Splitting must be
// stable: the same text and configuration always produce the same
// fragment boundaries, because fragment order becomes the chunk id.
type Splitter interface {
	Split(text string) ([]Fragment, error)
}

const (
	// DefaultChunkSize is the target fragment length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the character overlap between neighboring
	// fragments.
	DefaultChunkOverlap = 150
)

// RecursiveSplitter splits on paragraph and sentence boundaries first,
// falling back to hard cuts only when a block exceeds the target size.
type RecursiveSplitter struct {
	inner textsplitter.RecursiveCharacter
}

var _ Splitter = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter creates a splitter with the given target size and
// overlap. Non-positive values fall back to the defaults.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &RecursiveSplitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

func (s *RecursiveSplitter) Split(text string) ([]Fragment, error) {
	pieces, err := s.inner.SplitText(text)
	if err != nil {
		return nil, err
	}

	fragments := make([]Fragment, 0, len(pieces))
	searchFrom := 0
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		start := strings.Index(text[searchFrom:], piece)
		if start < 0 {
			// Overlapping pieces can begin before the previous search
			// position; retry from the top of the document.
			start = strings.Index(text, piece)
			if start < 0 {
				start = searchFrom
			}
		} else {
			start += searchFrom
		}
		end := start + len(piece)
		if end > len(text) {
			end = len(text)
		}
		fragments = append(fragments, Fragment{
			Text:  piece,
			Start: uint32(start),
			End:   uint32(end),
		})
		if start+1 > searchFrom {
			searchFrom = start + 1
		}
	}
	return fragments, nil
}
