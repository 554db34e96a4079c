package splitter

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits report text into overlapping chunks before indexing.
type Chunker struct {
	splitter textsplitter.TextSplitter
}

// NewChunker builds a recursive-character chunker with the given sizes.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// Chunk splits text into chunks.
func (c *Chunker) Chunk(text string) ([]string, error) {
	return c.splitter.SplitText(text)
}
